package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskTransferPending = "leads.transfer_pending"

const TaskPartnerLead = "notification.partner_lead"

type PartnerLeadPayload struct {
	LeadID int64 `json:"leadId"`
}

func NewTransferPendingTask() *asynq.Task {
	return asynq.NewTask(TaskTransferPending, nil)
}

func NewPartnerLeadTask(payload PartnerLeadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPartnerLead, data), nil
}

func ParsePartnerLeadPayload(task *asynq.Task) (PartnerLeadPayload, error) {
	var payload PartnerLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PartnerLeadPayload{}, err
	}
	return payload, nil
}
