package orchestrator

// Stage is a fixed milestone of a submission. Percentages are synthetic
// and say nothing about real completion.
type Stage int

// Milestones, reported in order.
const (
	StageUploadURL Stage = iota
	StageTransfer
	StagePreparing
	StageAnalyzing
	StageComplete
)

// Progress is one milestone update.
type Progress struct {
	Stage   Stage
	Percent int
	Label   string
}

// ProgressFunc receives milestone updates on the submitting goroutine.
type ProgressFunc func(Progress)

var milestones = [...]Progress{
	StageUploadURL: {StageUploadURL, 10, "Getting upload URL..."},
	StageTransfer:  {StageTransfer, 30, "Uploading file to S3..."},
	StagePreparing: {StagePreparing, 40, "Preparing for analysis..."},
	StageAnalyzing: {StageAnalyzing, 50, "Analyzing with AI (this takes 30-45 seconds)..."},
	StageComplete:  {StageComplete, 100, "Complete!"},
}

// Milestone returns the fixed update for s.
func Milestone(s Stage) Progress {
	return milestones[s]
}

func report(fn ProgressFunc, s Stage) {
	if fn != nil {
		fn(Milestone(s))
	}
}
