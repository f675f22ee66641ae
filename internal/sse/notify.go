package sse

import (
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/pipeline"
)

// NotifyPipeline turns a finished pipeline run into subscriber events. It
// satisfies pipeline.NotifyFunc.
func (b *Broker) NotifyPipeline(rec *models.NoteRecord, rep pipeline.Report) {
	var ev NoteEvent
	for _, st := range rep.Stages {
		if st.Err != nil {
			ev.FailedStages = append(ev.FailedStages, st.Name)
		}
	}

	kind := KindRegenerated
	switch {
	case rec != nil:
		kind = KindCreated
		ev.Path = rec.Filename
		ev.Source = rec.Source
		ev.OCRFailed = rec.ExtractionFailed
	case rep.Sync != nil && rep.Site == nil:
		kind = KindSynced
	}
	b.PublishNoteEvent(kind, ev)
}
