package dto

// SubjectRequest mirrors timetable.Subject on the wire (§6).
type SubjectRequest struct {
	SubjectCode   string `json:"subject_code" validate:"required"`
	SubjectName   string `json:"subject_name" validate:"required"`
	SubjectType   string `json:"subject_type" validate:"required,oneof=IPCC PCC PCCL PEC OEC HSMC MP INT"`
	TheoryHours   int    `json:"theory_hours" validate:"min=0"`
	LabHours      int    `json:"lab_hours" validate:"min=0"`
	TheoryFaculty string `json:"theory_faculty"`
	LabFaculty    string `json:"lab_faculty"`
	NoOfBatches   int    `json:"no_of_batches" validate:"omitempty,min=1"`
	Section       string `json:"section" validate:"required"`
	Semester      string `json:"semester"`
}

// FacultyRequest mirrors timetable.Faculty.
type FacultyRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// SectionRequest mirrors timetable.Section.
type SectionRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	Semester  string `json:"semester"`
	Classroom string `json:"classroom"`
}

// LabRoomRequest mirrors timetable.LabRoom.
type LabRoomRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// MasterScheduleEntryRequest mirrors timetable.MasterScheduleEntry.
type MasterScheduleEntryRequest struct {
	Day       int    `json:"day" validate:"min=0,max=5"`
	Period    int    `json:"period" validate:"min=0,max=6"`
	FacultyID string `json:"faculty_id"`
	SectionID string `json:"section_id"`
	RoomID    string `json:"room_id"`
	IsTheory  bool   `json:"is_theory"`
}

// GenerateTimetableRequest is the §6 input document: reference data for one
// solve, plus optional retry tuning consumed by generate_with_retry.
type GenerateTimetableRequest struct {
	TermID           string                       `json:"termId" validate:"required"`
	ClassID          string                       `json:"classId" validate:"required"`
	Subjects         []SubjectRequest             `json:"subjects" validate:"required,min=1,dive"`
	Faculties        []FacultyRequest             `json:"faculties" validate:"omitempty,dive"`
	Sections         []SectionRequest             `json:"sections" validate:"required,min=1,dive"`
	LabRooms         []LabRoomRequest             `json:"lab_rooms" validate:"omitempty,dive"`
	MasterSchedule   []MasterScheduleEntryRequest `json:"master_schedule" validate:"omitempty,dive"`
	MaxAttempts      int                          `json:"maxAttempts" validate:"omitempty,min=1"`
	FitnessThreshold float64                      `json:"fitnessThreshold" validate:"omitempty,min=0"`
}

// AssignmentResponse mirrors timetable.Assignment on the wire.
type AssignmentResponse struct {
	Day         int    `json:"day"`
	Period      int    `json:"period"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	SubjectType string `json:"subject_type"`
	FacultyID   string `json:"faculty_id"`
	SectionID   string `json:"section_id"`
	RoomID      string `json:"room_id"`
	BatchNumber int    `json:"batch_number"`
	IsTheory    bool   `json:"is_theory"`
}

// GenerateTimetableResponse is the §6 output document, with a proposal id
// added so the caller can Save it without resubmitting the timetable.
type GenerateTimetableResponse struct {
	ProposalID  string               `json:"proposalId"`
	Timetable   []AssignmentResponse `json:"timetable"`
	Fitness     float64              `json:"fitness"`
	Success     bool                 `json:"success"`
	Warnings    []string             `json:"warnings"`
	QualityTier string               `json:"qualityTier"`
}

// SaveScheduleRequest persists a previously generated proposal.
type SaveScheduleRequest struct {
	ProposalID    string `json:"proposalId" validate:"required"`
	CommitToDaily bool   `json:"commitToDaily"`
}

// SemesterScheduleQuery filters schedule summaries by class and term.
type SemesterScheduleQuery struct {
	TermID  string `form:"termId" json:"termId"`
	ClassID string `form:"classId" json:"classId"`
}
