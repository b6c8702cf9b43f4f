package guap

import "time"

type ScheduleEntry struct {
	PairNumber  string `json:"pairNumber"`
	TimeRange   string `json:"timeRange"`
	Type        string `json:"type"`
	Subject     string `json:"subject"`
	Teacher     string `json:"teacher"`
	TeacherInfo string `json:"teacherInfo"`
	Group       string `json:"group"`
	Building    string `json:"building"`
	Location    string `json:"location"`
}

type DaySchedule struct {
	DayName string `json:"dayName"`
	// Date is the short date shown in the column header, ex. "03.11".
	Date string `json:"date"`
	// FullDate is YYYY-MM-DD when the header links to the day view.
	FullDate string          `json:"fullDate"`
	Order    int             `json:"order"`
	Classes  []ScheduleEntry `json:"classes"`
}

type WeekSchedule struct {
	Days         []DaySchedule   `json:"days"`
	ExtraClasses []ScheduleEntry `json:"extraClasses"`
}

type StatusCode string

const (
	StatusAccepted     StatusCode = "accepted"
	StatusChecking     StatusCode = "checking"
	StatusSubmitted    StatusCode = "submitted"
	StatusNotSubmitted StatusCode = "not_submitted"
	StatusUnknown      StatusCode = "unknown"
)

type Status struct {
	Code StatusCode `json:"code"`
	Text string     `json:"text"`
}

type Teacher struct {
	FullName string `json:"fullName"`
	Link     string `json:"link"`
}

type Subject struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

type TaskInfo struct {
	Id        *int64 `json:"id"`
	Number    *int   `json:"number"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Link      string `json:"link"`
	CreatedAt string `json:"createdAt"`
}

type Deadline struct {
	Text       string     `json:"text"`
	ParsedDate *time.Time `json:"parsedDate"`
}

type Score struct {
	Achieved int `json:"achieved"`
	Max      int `json:"max"`
}

type TaskRecord struct {
	Task     TaskInfo `json:"task"`
	Subject  Subject  `json:"subject"`
	Teacher  Teacher  `json:"teacher"`
	Deadline Deadline `json:"deadline"`
	Score    Score    `json:"score"`
	Status   Status   `json:"status"`
}

type ReportTask struct {
	Id     *int64 `json:"id"`
	Number *int   `json:"number"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Link   string `json:"link"`
}

type LoadDate struct {
	Text string `json:"text"`
}

type ReportScore struct {
	Achieved *int `json:"achieved"`
	Max      *int `json:"max"`
	IsEmpty  bool `json:"isEmpty"`
}

type Attachments struct {
	DownloadUrl   string `json:"downloadUrl"`
	HasAttachment bool   `json:"hasAttachment"`
}

type ReportRecord struct {
	Task        ReportTask  `json:"task"`
	Teacher     Teacher     `json:"teacher"`
	LoadDate    LoadDate    `json:"loadDate"`
	Score       ReportScore `json:"score"`
	Status      Status      `json:"status"`
	Attachments Attachments `json:"attachments"`
}

type Contacts struct {
	Email        string `json:"email"`
	AccountEmail string `json:"accountEmail"`
	Phone        string `json:"phone"`
}

type Cabinet struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type ProfileRecord struct {
	PhotoUrl          string    `json:"photoUrl"`
	FullName          string    `json:"fullName"`
	Institute         string    `json:"institute"`
	Group             string    `json:"group"`
	StudentId         string    `json:"studentId"`
	Specialty         string    `json:"specialty"`
	SpecialtyCode     string    `json:"specialtyCode"`
	Direction         string    `json:"direction"`
	EducationForm     string    `json:"educationForm"`
	EducationLevel    string    `json:"educationLevel"`
	Status            string    `json:"status"`
	EnrollmentOrder   string    `json:"enrollmentOrder"`
	Contacts          Contacts  `json:"contacts"`
	AvailableCabinets []Cabinet `json:"availableCabinets"`
	CurrentCabinet    *Cabinet  `json:"currentCabinet"`
	ScrapedAt         time.Time `json:"scrapedAt"`
}

type WeekScheduleResult struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Schedule  WeekSchedule `json:"schedule"`
	Year      int          `json:"year"`
	Week      int          `json:"week"`
	Timestamp time.Time    `json:"timestamp"`
}

type DayScheduleResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Schedule  []ScheduleEntry `json:"schedule"`
	Date      string          `json:"date"`
	Timestamp time.Time       `json:"timestamp"`
}

type TasksResult struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Tasks      []TaskRecord `json:"tasks"`
	TasksCount int          `json:"tasksCount"`
	TotalTasks int          `json:"totalTasks"`
	// Partial is set when pagination stopped before the declared total.
	Partial      bool      `json:"partial"`
	PagesVisited int       `json:"pagesVisited"`
	Timestamp    time.Time `json:"timestamp"`
}

type ReportsResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Reports      []ReportRecord `json:"reports"`
	ReportsCount int            `json:"reportsCount"`
	TotalReports int            `json:"totalReports"`
	Partial      bool           `json:"partial"`
	PagesVisited int            `json:"pagesVisited"`
	Timestamp    time.Time      `json:"timestamp"`
}

type ProfileResult struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Profile   ProfileRecord `json:"profile"`
	Timestamp time.Time     `json:"timestamp"`
}
