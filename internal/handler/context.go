package handler

type ContextKey string

var (
	ScheduleRunCtx      ContextKey = "scheduleRun"
	CoverageTemplateCtx ContextKey = "coverageTemplate"
	EmployeeCtx         ContextKey = "employee"
)
