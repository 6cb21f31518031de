package historyhandler

type HistoryQuery struct {
	Room  string `form:"room,default=global" binding:"required"`
	Limit int    `form:"limit,default=50"    binding:"gte=0,lte=500"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
