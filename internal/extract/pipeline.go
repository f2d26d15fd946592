package extract

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"invoiceapi/internal/document"
	"invoiceapi/internal/model"
)

// Source is one document handed to the pipeline. Path is read when Data is nil.
type Source struct {
	ID   string
	Name string
	Path string
	Data []byte
}

func (s Source) label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Path != "":
		return s.Path
	default:
		return s.ID
	}
}

// Result holds everything extracted from one document. Records always has at
// least one entry; Err is a *DocumentReadError when the document could not be read.
type Result struct {
	DocumentID string
	Name       string
	Header     model.HeaderFields
	Records    []model.InvoiceRecord
	Method     Method
	Err        error
}

// Observer is told about every processed document.
type Observer interface {
	ObserveDocument(method Method, records int, elapsed time.Duration, err error)
}

type Option func(*Pipeline)

func WithLayout(l document.Layout) Option {
	return func(p *Pipeline) { p.layout = l }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithTableExtractor replaces the default cascade.
func WithTableExtractor(t *TableExtractor) Option {
	return func(p *Pipeline) { p.tables = t }
}

// Pipeline turns one document into invoice records. It holds only read-only
// configuration and is safe for concurrent use.
type Pipeline struct {
	layout   document.Layout
	fields   *FieldExtractor
	tables   *TableExtractor
	observer Observer
	tracer   trace.Tracer
	parse    func(data []byte) (*document.Document, error)
}

func NewPipeline(p Profile, opts ...Option) *Pipeline {
	pl := &Pipeline{
		layout: document.DefaultLayout(),
		fields: NewFieldExtractor(p),
		tables: NewTableExtractor(p),
		tracer: otel.Tracer("invoiceapi/extract"),
	}
	for _, opt := range opts {
		opt(pl)
	}
	pl.parse = pl.layout.Load
	return pl
}

// Process extracts one document. It never fails: an unreadable document, or one
// whose context ends first, yields a sentinel record and a DocumentReadError.
func (p *Pipeline) Process(ctx context.Context, src Source) Result {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "extract.document",
		trace.WithAttributes(attribute.String("document.name", src.label())))
	defer span.End()

	res := p.process(ctx, src)

	span.SetAttributes(
		attribute.String("extract.method", string(res.Method)),
		attribute.Int("extract.records", len(res.Records)),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "document unreadable")
	}
	if p.observer != nil {
		p.observer.ObserveDocument(res.Method, len(res.Records), time.Since(start), res.Err)
	}
	return res
}

func (p *Pipeline) process(ctx context.Context, src Source) Result {
	res := Result{DocumentID: src.ID, Name: src.label(), Method: MethodNone}

	fail := func(err error) Result {
		res.Header = model.HeaderFields{CustomerLocation: UnknownLocation}
		res.Records = Assemble(res.Header, nil)
		res.Method = MethodNone
		res.Err = &DocumentReadError{Source: src.label(), Err: err}
		return res
	}

	data := src.Data
	if data == nil {
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return fail(err)
		}
		data = b
	}

	doc, err := p.load(ctx, data)
	if err != nil {
		return fail(err)
	}

	_, textSpan := p.tracer.Start(ctx, "extract.text")
	text := doc.Text()
	textSpan.End()

	_, fieldSpan := p.tracer.Start(ctx, "extract.fields")
	res.Header = p.fields.Extract(text)
	fieldSpan.End()

	tctx, tableSpan := p.tracer.Start(ctx, "extract.tables")
	rows, method, err := p.tables.Extract(tctx, doc, text)
	tableSpan.SetAttributes(attribute.String("extract.method", string(method)))
	tableSpan.End()
	if err != nil {
		return fail(err)
	}

	res.Method = method
	res.Records = Assemble(res.Header, rows)
	return res
}

// load parses off the caller's goroutine so an expired context is noticed even
// while the parser is busy. The parse itself keeps running until it returns.
func (p *Pipeline) load(ctx context.Context, data []byte) (*document.Document, error) {
	type loaded struct {
		doc *document.Document
		err error
	}
	ch := make(chan loaded, 1)
	go func() {
		doc, err := p.parse(data)
		ch <- loaded{doc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case l := <-ch:
		return l.doc, l.err
	}
}

// ExtractText returns the text layer of a document, pages joined in order.
// An unreadable document gives an empty string and a *DocumentReadError.
func ExtractText(data []byte, source string) (string, error) {
	doc, err := document.Load(data)
	if err != nil {
		return "", &DocumentReadError{Source: source, Err: err}
	}
	return doc.Text(), nil
}

