package core

// Logger is any service that can log messages and errors.
// args may hold errors, maps of extra data or the authenticated Principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal is the authenticated student or teacher behind a request.
type Principal struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

const (
	PrincipalStudent = "student"
	PrincipalTeacher = "teacher"
)

func (p Principal) IsStudent() bool { return p.Kind == PrincipalStudent }
func (p Principal) IsTeacher() bool { return p.Kind == PrincipalTeacher }
