package services

// ServiceError carries an HTTP-mappable status code alongside the message the
// caller may show to the user.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}
