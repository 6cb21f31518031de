package loginhandler

type LoginBody struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
