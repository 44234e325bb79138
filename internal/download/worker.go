package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	"avatardl/internal/logging"
	"avatardl/internal/services"
	"avatardl/internal/transfer"
)

// runTask performs one transfer attempt and reports the outcome.
func (o *Orchestrator) runTask(b *batch, j job) {
	ctx := services.WithAvatarID(services.WithTaskID(b.ctx, j.taskID), j.avatarID)
	var cancel context.CancelFunc = func() {}
	if o.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.taskTimeout)
	}
	defer cancel()

	written, output, err := o.transfer(ctx, b, j)
	if err != nil && o.taskTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) && b.ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, "download", "transfer", fmt.Sprintf("no result after %s", o.taskTimeout), err)
	}
	if err != nil {
		logging.WithContext(ctx, o.logger).Debug("transfer attempt ended with error",
			logging.Int("attempt", j.attempt),
			logging.String("url", j.url),
			logging.Error(err),
		)
	}
	o.send(b, message{taskID: j.taskID, attempt: j.attempt, written: written, output: output, err: err})
}

func (o *Orchestrator) transfer(ctx context.Context, b *batch, j job) (int64, string, error) {
	if j.dir == nil {
		return 0, "", services.Wrap(services.ErrPermission, "download", "write", "directory handle released", nil)
	}
	if err := j.dir.CheckWritable(); err != nil {
		return 0, "", err
	}

	resp, err := o.fetcher.Fetch(ctx, j.url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	output := j.output
	if j.needsExtension {
		output += transfer.ExtensionForContentType(resp.ContentType)
	}

	body := &progressReader{
		r:     resp.Body,
		total: resp.ContentLength,
		report: func(written, total int64) {
			o.send(b, message{taskID: j.taskID, attempt: j.attempt, progress: true, written: written, total: total})
		},
	}
	written, err := j.dir.Write(ctx, output, body)
	if err != nil {
		return written, output, err
	}
	return written, output, nil
}

// send delivers a message unless the batch was abandoned.
func (o *Orchestrator) send(b *batch, msg message) {
	select {
	case b.results <- msg:
	case <-b.ctx.Done():
	}
}

// progressReader reports cumulative bytes whenever the whole percentage moves.
type progressReader struct {
	r       io.Reader
	total   int64
	written int64
	lastPct int64
	report  func(written, total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.written += int64(n)
		if p.total > 0 {
			pct := p.written * 100 / p.total
			if pct > p.lastPct {
				p.lastPct = pct
				p.report(p.written, p.total)
			}
		}
	}
	return n, err
}
