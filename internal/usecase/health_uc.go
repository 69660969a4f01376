package usecase

import (
	"context"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

type Recommendation string

const (
	RecommendationWait    Recommendation = "wait"
	RecommendationSuccess Recommendation = "success"
	RecommendationRetry   Recommendation = "retry"
	RecommendationFailed  Recommendation = "failed"
)

// HealthReport is the oracle's advice plus the UI-only stage inference.
// The oracle never mutates the job record.
type HealthReport struct {
	Recommendation Recommendation         `json:"recommendation"`
	ProviderStatus adapter.ProviderStatus `json:"provider_status,omitempty"`
	FinalArtifact  bool                   `json:"final_artifact"`
	Stage          string                 `json:"stage,omitempty"`
	Progress       int                    `json:"progress"`
	Detail         string                 `json:"detail,omitempty"`
}

// HealthUseCase reconciles two independent liveness signals: artifact
// presence in object storage and the provider's own job status.
type HealthUseCase struct {
	probe     *ArtifactProbe
	provider  adapter.ComputeProvider
	estimator ProgressEstimator
	log       *zerolog.Logger
}

func NewHealthUseCase(probe *ArtifactProbe, provider adapter.ComputeProvider, estimator ProgressEstimator, logger *zerolog.Logger) *HealthUseCase {
	healthLog := logger.With().Str("component", "HealthUseCase").Logger()
	return &HealthUseCase{probe: probe, provider: provider, estimator: estimator, log: &healthLog}
}

// Check advises on a submitted job. The final artifact is the fast path:
// once output exists the provider is never consulted. Probe and poll errors
// are transient — the job is treated as not ready yet, never as dead.
func (uc *HealthUseCase) Check(ctx context.Context, handle, userID, videoID string) (*HealthReport, error) {
	final, err := uc.probe.FinalPresent(ctx, userID, videoID)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Str("video_id", videoID).
			Msg("artifact probe unavailable; falling through to provider status")
	}
	if final {
		return &HealthReport{
			Recommendation: RecommendationSuccess,
			FinalArtifact:  true,
			Stage:          model.FinalStage().Stage,
			Progress:       100,
			Detail:         "final artifact present",
		}, nil
	}

	st, err := uc.provider.Status(ctx, handle)
	if err != nil {
		uc.log.Warn().Err(err).Str("handle", handle).Msg("provider status poll failed; advising wait")
		return &HealthReport{
			Recommendation: RecommendationWait,
			Detail:         "provider status unavailable; treating as still processing",
		}, nil
	}

	report := &HealthReport{ProviderStatus: st.Status}
	if stage, pct, ok := uc.estimator.Estimate(st.Logs); ok {
		report.Stage = stage
		report.Progress = pct
	}

	switch {
	case st.Status.Alive():
		report.Recommendation = RecommendationWait
		report.Detail = "provider still processing"
	case st.Status == adapter.ProviderStatusCompleted:
		// Provider claims success; the artifact may have landed since the
		// fast-path check. Confirm before trusting it.
		confirmed, err := uc.probe.FinalPresent(ctx, userID, videoID)
		if err != nil {
			uc.log.Warn().Err(err).Str("handle", handle).Msg("could not confirm final artifact")
		}
		if confirmed {
			report.Recommendation = RecommendationSuccess
			report.FinalArtifact = true
			report.Progress = 100
			report.Stage = model.FinalStage().Stage
			report.Detail = "provider finished and output confirmed"
		} else {
			report.Recommendation = RecommendationFailed
			report.Detail = "provider reports success but no output artifact exists"
		}
	case st.Status.Dead():
		report.Recommendation = RecommendationRetry
		report.Detail = "worker died before producing output"
		if st.Error != "" {
			report.Detail = "worker died: " + st.Error
		}
	default:
		report.Recommendation = RecommendationFailed
		report.Detail = "unknown terminal provider state"
	}
	return report, nil
}
