package email

const (
	subjectLeadAssignedFmt     = "New lead assigned: %s"
	subjectLeadsTransferredFmt = "%d transferred leads assigned to you"
)
