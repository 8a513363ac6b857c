package eventmodels

type ErrorDTO struct {
	Msg string `json:"msg"`
}
