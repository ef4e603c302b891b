package httpgin

type ReserveRequest struct {
	EventID int64  `json:"event_id" binding:"required,gt=0"`
	UserID  string `json:"user_id" binding:"required"`
}

type CreateEventRequest struct {
	Name       string `json:"name" binding:"required"`
	TotalSeats *int   `json:"total_seats" binding:"required,gte=0"`
}

type UpdateEventRequest struct {
	Name       *string `json:"name"`
	TotalSeats *int    `json:"total_seats" binding:"omitempty,gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
