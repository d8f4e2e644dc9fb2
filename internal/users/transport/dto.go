package transport

type CreateUserRequest struct {
	Username           string  `json:"username" validate:"required,notblank,max=100"`
	Email              string  `json:"email" validate:"required,email,max=254"`
	Password           string  `json:"password" validate:"required,min=8,max=72"`
	RoleID             int64   `json:"roleId" validate:"required,oneof=1 2"`
	AssignedServiceIDs []int64 `json:"assignedServiceIds" validate:"omitempty,dive,gt=0"`
}

// UpdateUserRequest replaces the user. A blank password keeps the current one and
// assignedServiceIds replaces the whole service set.
type UpdateUserRequest struct {
	Username           string  `json:"username" validate:"required,notblank,max=100"`
	Email              string  `json:"email" validate:"required,email,max=254"`
	Password           string  `json:"password" validate:"omitempty,min=8,max=72"`
	RoleID             int64   `json:"roleId" validate:"required,oneof=1 2"`
	AssignedServiceIDs []int64 `json:"assignedServiceIds" validate:"omitempty,dive,gt=0"`
}

type UserResponse struct {
	ID                 int64   `json:"id"`
	Username           string  `json:"username"`
	Email              string  `json:"email"`
	RoleID             int64   `json:"roleId"`
	Active             bool    `json:"active"`
	AssignedServiceIDs []int64 `json:"assignedServiceIds"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

type PermissionResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PermissionsResponse struct {
	UserID      int64                `json:"userId"`
	RoleID      int64                `json:"roleId"`
	Permissions []PermissionResponse `json:"permissions"`
}
