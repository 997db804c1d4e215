package entity

type OperatorLoginData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
