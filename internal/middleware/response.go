package middleware

// errorBody matches the handler envelope so clients see one error shape.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorJSON(msg string) errorBody {
	return errorBody{Success: false, Error: msg}
}
