package model

// ArtifactStage ties one named output file to the pipeline stage it marks and
// the completion percentage its presence implies.
type ArtifactStage struct {
	FileName string
	Stage    string
	Percent  int
}

// PipelineStages is the fixed, ordered set of output files the worker writes
// under the per-(user,video) prefix. The set is monotonic: once a file shows
// up it is assumed never to disappear. Presence of the last entry alone
// signals completion.
var PipelineStages = []ArtifactStage{
	{FileName: "source.mp4", Stage: "uploaded", Percent: 10},
	{FileName: "frames.zip", Stage: "frames_extracted", Percent: 30},
	{FileName: "detections.json", Stage: "objects_detected", Percent: 55},
	{FileName: "tracks.json", Stage: "motion_tracked", Percent: 75},
	{FileName: "analysis.json", Stage: "analyzed", Percent: 100},
}

// FinalStage returns the marker whose presence means the pipeline finished.
func FinalStage() ArtifactStage { return PipelineStages[len(PipelineStages)-1] }

// ArtifactPrefix is the object-storage prefix holding one job's outputs.
func ArtifactPrefix(userID, videoID string) string {
	return userID + "/" + videoID + "/"
}

// ArtifactSet is the derived result of probing object storage for one job.
type ArtifactSet struct {
	Present      map[string]bool
	Stage        string
	Percent      int
	FinalPresent bool
}
