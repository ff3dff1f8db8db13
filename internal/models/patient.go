package models

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid 是否为合法性别
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

const (
	MinPatientAge = 0
	MaxPatientAge = 120
)

// PatientInfo 患者基础信息
type PatientInfo struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    Gender `json:"gender"`
}
