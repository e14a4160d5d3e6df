package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/eventlog"
	"github.com/roach88/eventscope/internal/interval"
)

// Attach copies everything already in log and index into the mirror and
// subscribes to both for subsequent changes. Attach must not run
// concurrently with a writer appending to log.
func (m *Mirror) Attach(ctx context.Context, log *eventlog.Log, index *interval.Index) error {
	for pos, ev := range log.All() {
		if err := m.WriteEvent(ctx, pos, ev); err != nil {
			return err
		}
	}
	for c := interval.Category(0); c.Valid(); c++ {
		for _, iv := range index.Intervals(c) {
			if err := m.WriteInterval(ctx, iv); err != nil {
				return err
			}
		}
	}

	offLog := log.Subscribe(func(ch eventlog.Change) {
		if ch.Kind != eventlog.RowInserted || ch.Position.IsStep() {
			return
		}
		// Listeners run after the log has unlocked, so reading back is safe.
		ev, ok := log.Event(ch.Position)
		if !ok {
			m.fail(fmt.Errorf("mirror event %s: not in log", ch.Position))
			return
		}
		if err := m.WriteEvent(ctx, ch.Position, ev); err != nil {
			m.fail(err)
		}
	})

	offIndex := index.Subscribe(func(ch interval.Change) {
		if err := m.WriteInterval(ctx, ch.Interval); err != nil {
			m.fail(err)
		}
	})

	m.mu.Lock()
	m.detach = append(m.detach, offLog, offIndex)
	m.mu.Unlock()
	return nil
}

// WriteEvent inserts one committed event.
func (m *Mirror) WriteEvent(ctx context.Context, pos event.Position, ev event.Event) error {
	props, err := marshalProps(event.PropsOf(ev))
	if err != nil {
		return fmt.Errorf("write event %s: %w", pos, err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO events (step, idx, ts, kind, source, subject, props, synthetic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pos.Step(),
		pos.Index(),
		int64(ev.Time()),
		ev.Kind().String(),
		ev.Source(),
		event.Subject(ev),
		props,
		ev.Synthetic(),
	)
	if err != nil {
		return fmt.Errorf("write event %s: %w", pos, err)
	}
	return nil
}

// WriteInterval inserts iv, or updates its end if it is already mirrored.
func (m *Mirror) WriteInterval(ctx context.Context, iv *interval.Interval) error {
	m.mu.Lock()
	id, known := m.ids[iv]
	m.mu.Unlock()

	end, endAt := iv.End()
	pending := iv.Pending()

	if known {
		var err error
		if pending {
			_, err = m.db.ExecContext(ctx, `
				UPDATE intervals SET end_step = NULL, end_idx = NULL, end_ts = NULL, pending = 1
				WHERE id = ?
			`, id)
		} else {
			_, err = m.db.ExecContext(ctx, `
				UPDATE intervals SET end_step = ?, end_idx = ?, end_ts = ?, pending = 0
				WHERE id = ?
			`, end.Step(), end.Index(), int64(endAt), id)
		}
		if err != nil {
			return fmt.Errorf("update interval %s: %w", iv, err)
		}
		return nil
	}

	start, startAt := iv.Start()
	var endStep, endIdx, endTS any
	if !pending {
		endStep, endIdx, endTS = end.Step(), end.Index(), int64(endAt)
	}

	res, err := m.db.ExecContext(ctx, `
		INSERT INTO intervals
		(category, subject, start_step, start_idx, start_ts, end_step, end_idx, end_ts, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		iv.Category().String(),
		iv.Subject(),
		start.Step(),
		start.Index(),
		int64(startAt),
		endStep,
		endIdx,
		endTS,
		pending,
	)
	if err != nil {
		return fmt.Errorf("write interval %s: %w", iv, err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("write interval %s: %w", iv, err)
	}

	m.mu.Lock()
	m.ids[iv] = id
	m.mu.Unlock()
	return nil
}

// marshalProps converts a property bag to JSON TEXT for storage.
// encoding/json sorts map keys, so equal bags produce equal text.
func marshalProps(p event.Props) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal props: %w", err)
	}
	return string(data), nil
}
