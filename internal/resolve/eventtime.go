package resolve

import (
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/relation"
)

// eventTimeFieldName derives the filter column name for a target. Quoting
// comes from the matching column's explicit quote flag when present, else
// the target's column quoting policy; with no matching column entry the
// raw configured name is used unquoted.
func eventTimeFieldName(target *graph.Node) string {
	eventTime := target.Config.EventTime
	for _, info := range target.Columns {
		if info.Name != eventTime {
			continue
		}
		quote := target.Quoting.Column
		if info.Quote != nil {
			quote = *info.Quote
		}
		if quote {
			return relation.NewColumn(info.Name, info.DataType).Quoted()
		}
		return eventTime
	}
	return eventTime
}

// resolveEventTimeFilter derives the event-time filter for reads of target.
// No filter applies unless the target declares an event-time column and the
// requester is a model or snapshot. Precedence: microbatch window (clamped
// by the sample window in sample mode), then the plain sample window, then
// nothing.
func (r *Resolver) resolveEventTimeFilter(target *graph.Node) *relation.EventTimeFilter {
	if target.Config.EventTime == "" {
		return nil
	}
	switch r.node.ResourceType {
	case graph.NodeTypeModel, graph.NodeTypeSnapshot:
	default:
		return nil
	}

	fieldName := eventTimeFieldName(target)
	sample := r.config.Flags.Sample

	if r.node.IsMicrobatch() && r.config.UseMicrobatch && r.node.Batch != nil {
		batch := r.node.Batch
		if sample != nil {
			start := sample.Start
			if batch.EventTimeStart.After(start) {
				start = batch.EventTimeStart
			}
			end := sample.End
			if batch.EventTimeEnd.Before(end) {
				end = batch.EventTimeEnd
			}
			return &relation.EventTimeFilter{FieldName: fieldName, Start: start, End: end}
		}
		return &relation.EventTimeFilter{
			FieldName: fieldName,
			Start:     batch.EventTimeStart,
			End:       batch.EventTimeEnd,
		}
	}

	if sample != nil {
		return &relation.EventTimeFilter{FieldName: fieldName, Start: sample.Start, End: sample.End}
	}
	return nil
}
