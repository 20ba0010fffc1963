package model

// Student is the identity record returned by the backend after registration.
type Student struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClassName    string `json:"className"`
	Section      string `json:"section"`
	RollNumber   string `json:"rollNumber"`
	RegisteredAt string `json:"registeredAt"`
}

// StudentRegistration is the registration form. Class and section are bound to
// the configured enumerations through the exam_class/exam_section validators.
type StudentRegistration struct {
	Name       string `json:"name" binding:"required,max=100"`
	ClassName  string `json:"className" binding:"required,exam_class"`
	Section    string `json:"section" binding:"required,exam_section"`
	RollNumber string `json:"rollNumber" binding:"required,max=20"`
}
