package usecase

import (
	"context"
	"strings"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// ArtifactProbe derives pipeline progress from the presence of named output
// files in object storage. A pure read; listing errors are the caller's
// "transient, not ready yet" signal.
type ArtifactProbe struct {
	store adapter.ObjectStore
	log   *zerolog.Logger
}

func NewArtifactProbe(store adapter.ObjectStore, logger *zerolog.Logger) *ArtifactProbe {
	probeLog := logger.With().Str("component", "ArtifactProbe").Logger()
	return &ArtifactProbe{store: store, log: &probeLog}
}

// Probe lists the job's artifact prefix and maps present files onto the
// ordered stage table. The highest present stage wins.
func (p *ArtifactProbe) Probe(ctx context.Context, userID, videoID string) (*model.ArtifactSet, error) {
	prefix := model.ArtifactPrefix(userID, videoID)
	names, err := p.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.TrimPrefix(n, prefix)] = true
	}

	set := &model.ArtifactSet{Present: make(map[string]bool, len(model.PipelineStages))}
	for _, st := range model.PipelineStages {
		if present[st.FileName] {
			set.Present[st.FileName] = true
			set.Stage = st.Stage
			set.Percent = st.Percent
		}
	}
	set.FinalPresent = set.Present[model.FinalStage().FileName]
	return set, nil
}

// FinalPresent checks only the final-stage marker, avoiding a full listing.
func (p *ArtifactProbe) FinalPresent(ctx context.Context, userID, videoID string) (bool, error) {
	key := model.ArtifactPrefix(userID, videoID) + model.FinalStage().FileName
	return p.store.Exists(ctx, key)
}
