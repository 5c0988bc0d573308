package dto

// DunningResult summarizes one dunning run. Failed lists the invoices whose
// escalation errored; they do not abort the run.
type DunningResult struct {
	Processed int      `json:"processed"`
	Suspended int      `json:"suspended"`
	Failed    []string `json:"failed,omitempty"`
}

// CronJobResponse is returned by the scheduled job endpoint
type CronJobResponse struct {
	Overdue *MarkOverdueResponse `json:"overdue,omitempty"`
	Dunning *DunningResult       `json:"dunning"`
}
