package domain

type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	NotificationRunCompleted  = "run_completed"
	NotificationRunInfeasible = "run_infeasible"
	NotificationRunTimedOut   = "run_timed_out"
)

type RunCompletedMailData struct {
	RunName         string  `json:"runName"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	AssignmentCount int     `json:"assignmentCount"`
	FairnessScore   float64 `json:"fairnessScore"`
	SafetyScore     float64 `json:"safetyScore"`
	Iterations      int64   `json:"iterations"`
	ElapsedMS       int64   `json:"elapsedMS"`
}

type RunInfeasibleMailData struct {
	RunName        string   `json:"runName"`
	ViolationCount int      `json:"violationCount"`
	Reasons        []string `json:"reasons"`
}

type RunTimedOutMailData struct {
	RunName    string `json:"runName"`
	Iterations int64  `json:"iterations"`
	ElapsedMS  int64  `json:"elapsedMS"`
	IsFeasible bool   `json:"isFeasible"`
}
