package requests

// SendMessageRequest is the body of POST /v1/conversations/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateStatusRequest is the body of the intake status forward routes.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
