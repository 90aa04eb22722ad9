package validation

// PurchaseRequest is the body of POST /events/{id}/tickets. Quantity defaults to 1.
type PurchaseRequest struct {
	Quantity      *int     `json:"quantity" validate:"omitempty,min=1"`
	AttendeeNames []string `json:"attendeeNames" validate:"omitempty,dive,max=255"`
}

// QuantityOrDefault returns the requested quantity, or 1 when omitted.
func (r PurchaseRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// CreateTeamRequest is the body of POST /teams.
type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// InviteRequest is the body of POST /teams/{id}/invitations.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RespondRequest is the body of POST /invitations/{id}/respond.
type RespondRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// AssignTeamsRequest is the body of PUT /events/{id}/teams. An empty list
// clears every assignment.
type AssignTeamsRequest struct {
	TeamIDs []int64 `json:"teamIds" validate:"dive,gt=0"`
}
