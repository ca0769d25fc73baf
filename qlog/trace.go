package qlog

import (
	"time"

	"github.com/francoispqt/gojay"
)

type topLevel struct {
	trace trace
}

var _ gojay.MarshalerJSONObject = topLevel{}

func (topLevel) IsNil() bool { return false }
func (l topLevel) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("qlog_format", "NDJSON")
	enc.StringKey("qlog_version", "draft-02")
	enc.StringKey("title", "qdemux")
	enc.ObjectKey("trace", l.trace)
}

type vantagePoint struct {
	Name string
	Type string
}

var _ gojay.MarshalerJSONObject = vantagePoint{}

func (vantagePoint) IsNil() bool { return false }
func (p vantagePoint) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKeyOmitEmpty("name", p.Name)
	enc.StringKeyOmitEmpty("type", p.Type)
}

type commonFields struct {
	ReferenceTime time.Time
}

var _ gojay.MarshalerJSONObject = commonFields{}

func (commonFields) IsNil() bool { return false }
func (f commonFields) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Float64Key("reference_time", float64(f.ReferenceTime.UnixNano())/1e6)
	enc.StringKey("time_format", "relative")
}

type trace struct {
	VantagePoint vantagePoint
	CommonFields commonFields
}

var _ gojay.MarshalerJSONObject = trace{}

func (trace) IsNil() bool { return false }
func (t trace) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("vantage_point", t.VantagePoint)
	enc.ObjectKey("common_fields", t.CommonFields)
}
