package callnotes

import (
	"context"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/card"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"bitbucket.org/airenas/callnotes/internal/pkg/consultant"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"bitbucket.org/airenas/callnotes/internal/pkg/filename"
	"bitbucket.org/airenas/callnotes/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//Processing stages recorded with errors
const (
	StageDownload  = "download"
	StageSummarize = "summarize"
	StageDeliver   = "deliver"
)

//FileStore provides unprocessed transcript files
type FileStore interface {
	List(ctx context.Context) ([]*api.SourceFile, error)
	Download(ctx context.Context, f *api.SourceFile) ([]byte, error)
	MarkProcessed(ctx context.Context, f *api.SourceFile) error
}

//Directory provides consultants and prompt templates
type Directory interface {
	Consultants(ctx context.Context) (api.Consultants, error)
	Prompts(ctx context.Context) (api.Prompts, error)
}

//AuditLog records skipped and failed files
type AuditLog interface {
	Skipped(ctx context.Context, e *api.SkipEntry) error
	Failed(ctx context.Context, e *api.ErrorEntry) error
}

//Extractor returns text of the document
type Extractor interface {
	Extract(data []byte) *api.Transcript
}

//Summarizer produces call notes
type Summarizer interface {
	Summarize(ctx context.Context, template, transcript, consultant, candidate string) (string, error)
}

//Deliverer sends the card to the consultant
type Deliverer interface {
	Deliver(ctx context.Context, c *api.Consultant, card interface{}) (string, error)
	TeamID() string
}

//EventPublisher publishes file outcomes
type EventPublisher interface {
	Publish(ctx context.Context, o *api.Outcome) error
}

//Alerter notifies the operator about rejected credentials
type Alerter interface {
	AuthFailed(ctx context.Context, cause error) error
	Recovered()
}

//AuthChecker reports whether delivery credentials are usable
type AuthChecker interface {
	Token(ctx context.Context) (string, error)
}

//CycleResult holds counts of one cycle
type CycleResult struct {
	Files     int
	Delivered int
	Skipped   int
	Failed    int
}

//Processor runs the per file pipeline
type Processor struct {
	files      FileStore
	directory  Directory
	audit      AuditLog
	extractor  Extractor
	resolver   consultant.Resolver
	summarizer Summarizer
	deliverer  Deliverer
	threshold  int

	publisher EventPublisher
	alerter   Alerter
	auth      AuthChecker
	metrics   *metrics.Pipeline
	now       func() time.Time
}

//NewProcessor creates the processor
func NewProcessor(files FileStore, directory Directory, audit AuditLog, extractor Extractor,
	resolver consultant.Resolver, summarizer Summarizer, deliverer Deliverer, threshold int) (*Processor, error) {
	if files == nil || directory == nil || audit == nil || extractor == nil || resolver == nil ||
		summarizer == nil || deliverer == nil {
		return nil, errors.New("Not all processor dependencies provided")
	}
	if threshold < 0 {
		return nil, errc.Configuration("Wrong word threshold")
	}
	return &Processor{files: files, directory: directory, audit: audit, extractor: extractor, resolver: resolver,
		summarizer: summarizer, deliverer: deliverer, threshold: threshold, now: time.Now}, nil
}

//WithPublisher sets outcome events publisher
func (p *Processor) WithPublisher(pub EventPublisher) *Processor {
	p.publisher = pub
	return p
}

//WithAlerter sets operator alerter
func (p *Processor) WithAlerter(a Alerter) *Processor {
	p.alerter = a
	return p
}

//WithAuthCheck sets credentials check done before files are processed
func (p *Processor) WithAuthCheck(a AuthChecker) *Processor {
	p.auth = a
	return p
}

//WithMetrics sets pipeline metrics
func (p *Processor) WithMetrics(m *metrics.Pipeline) *Processor {
	p.metrics = m
	return p
}

//RunCycle processes all currently unmarked files
func (p *Processor) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := p.now()
	if p.metrics != nil {
		defer func() { p.metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()
	}
	cycleID := uuid.New().String()
	consultants, err := p.directory.Consultants(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load consultants")
	}
	prompts, err := p.directory.Prompts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load prompts")
	}
	files, err := p.files.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Can't list files")
	}
	log := cmdapp.Log.WithField("cycle", cycleID)
	log.Infof("Found %d files, %d consultants", len(files), len(consultants))
	res := &CycleResult{}
	if len(files) > 0 && p.auth != nil {
		if _, err := p.auth.Token(ctx); errors.Is(err, errc.ErrUnrecoverableAuth) {
			p.alertIfAuth(ctx, err, log)
			return res, errors.Wrap(err, "Credentials rejected, files left for the next cycle")
		}
	}
	for _, f := range files {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		o, err := p.processFile(ctx, cycleID, f, consultants, prompts)
		res.Files++
		switch o.Status {
		case api.StatusDelivered:
			res.Delivered++
		case api.StatusSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
		if errors.Is(err, errc.ErrUnrecoverableAuth) {
			return res, errors.Wrap(err, "Credentials rejected, remaining files left for the next cycle")
		}
	}
	return res, nil
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

func (p *Processor) processFile(ctx context.Context, cycleID string, f *api.SourceFile,
	consultants api.Consultants, prompts api.Prompts) (*api.Outcome, error) {
	log := cmdapp.Log.WithField("file", f.Name).WithField("cycle", cycleID)
	log.Info("Processing")
	o := &api.Outcome{ID: uuid.New().String(), CycleID: cycleID, FileID: f.ID, FileName: f.Name, Time: p.now()}

	err := p.run(ctx, f, consultants, prompts, o, log)
	if reason, ok := errc.SkipReason(err); ok {
		o.Status, o.Reason = api.StatusSkipped, reason
		log.Infof("Skipped: %s", reason)
		p.logSkip(ctx, o, log)
	} else if err != nil {
		o.Status, o.Reason = api.StatusFailed, err.Error()
		var se *stageError
		if errors.As(err, &se) {
			o.Stage, o.Reason = se.stage, se.err.Error()
		}
		log.Errorf("Failed [%s]: %v", errc.Code(err), err)
		p.logError(ctx, o, log)
		p.alertIfAuth(ctx, err, log)
	} else {
		o.Status = api.StatusDelivered
		log.Info("Delivered")
		if p.alerter != nil {
			p.alerter.Recovered()
		}
	}
	p.finish(ctx, f, o, log)
	return o, err
}

func (p *Processor) run(ctx context.Context, f *api.SourceFile, consultants api.Consultants, prompts api.Prompts,
	o *api.Outcome, log *logrus.Entry) error {
	data, err := p.files.Download(ctx, f)
	if err != nil {
		return &stageError{stage: StageDownload, err: err}
	}
	tr := p.extractor.Extract(data)
	if tr == nil {
		tr = &api.Transcript{}
	}
	o.WordCount = tr.WordCount
	log.Infof("Extracted %d words", tr.WordCount)
	if tr.WordCount < p.threshold {
		return errc.Skip(api.ReasonTooShort)
	}

	meta := filename.Parse(f.Name, p.now())
	c, name := p.resolver.Resolve(f.Name, meta, consultants)
	o.Consultant = name
	if c == nil {
		return errc.Skip(api.ReasonUnknownConsultant)
	}
	if !c.Active {
		return errc.Skip(api.ReasonInactive)
	}
	if !consultant.HasTarget(c, p.deliverer.TeamID()) {
		return errc.Skip(api.ReasonNoTarget)
	}

	template := consultant.SelectPrompt(prompts, c.Desk)
	notes, err := p.summarizer.Summarize(ctx, template, tr.Text, c.Name, meta.CandidateName)
	if err != nil {
		return &stageError{stage: StageSummarize, err: err}
	}
	via, err := p.deliverer.Deliver(ctx, c, card.Compose(meta.CandidateName, meta.CallDate, notes, f.Name))
	if err != nil {
		return &stageError{stage: StageDeliver, err: err}
	}
	log.Infof("Sent via %s to %s", via, c.Name)
	return nil
}

func (p *Processor) logSkip(ctx context.Context, o *api.Outcome, log *logrus.Entry) {
	err := p.audit.Skipped(ctx, &api.SkipEntry{FileName: o.FileName, Time: p.now(), WordCount: o.WordCount,
		Reason: o.Reason, Consultant: o.Consultant})
	if err != nil {
		log.Error(errors.Wrap(err, "Can't log skipped call"))
	}
}

func (p *Processor) logError(ctx context.Context, o *api.Outcome, log *logrus.Entry) {
	err := p.audit.Failed(ctx, &api.ErrorEntry{FileName: o.FileName, Time: p.now(), Error: o.Reason,
		Stage: o.Stage, Consultant: o.Consultant})
	if err != nil {
		log.Error(errors.Wrap(err, "Can't log processing error"))
	}
}

func (p *Processor) alertIfAuth(ctx context.Context, err error, log *logrus.Entry) {
	if p.alerter == nil || !errors.Is(err, errc.ErrUnrecoverableAuth) {
		return
	}
	if err := p.alerter.AuthFailed(ctx, err); err != nil {
		log.Error(err)
	}
}

func (p *Processor) finish(ctx context.Context, f *api.SourceFile, o *api.Outcome, log *logrus.Entry) {
	if err := p.files.MarkProcessed(ctx, f); err != nil {
		log.Error(errors.Wrap(err, "Can't mark processed"))
		if p.metrics != nil {
			p.metrics.MarkFailures.Inc()
		}
	}
	if p.metrics != nil {
		p.metrics.Files.WithLabelValues(o.Status).Inc()
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, o); err != nil {
			log.Warn(errors.Wrap(err, "Can't publish outcome"))
		}
	}
}
