package sink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func marshalManifest(m Manifest) ([]byte, error) {
	started, err := timestampValue(m.Started)
	if err != nil {
		return nil, err
	}
	finished, err := timestampValue(m.Finished)
	if err != nil {
		return nil, err
	}

	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"job_id":      structpb.NewStringValue(m.JobID),
		"nodes":       structpb.NewNumberValue(float64(m.Nodes)),
		"reducers":    structpb.NewNumberValue(float64(m.Reducers)),
		"splits":      structpb.NewNumberValue(float64(m.Splits)),
		"keys":        structpb.NewNumberValue(float64(m.Keys)),
		"records":     structpb.NewNumberValue(float64(m.Records)),
		"input_bytes": structpb.NewNumberValue(float64(m.InputBytes)),
		"started":     started,
		"finished":    finished,
	}}

	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
}

func unmarshalManifest(b []byte) (Manifest, error) {
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	f := st.GetFields()

	started, err := parseTimestamp(f["started"].GetStringValue())
	if err != nil {
		return Manifest{}, err
	}
	finished, err := parseTimestamp(f["finished"].GetStringValue())
	if err != nil {
		return Manifest{}, err
	}

	return Manifest{
		Started:    started,
		Finished:   finished,
		JobID:      f["job_id"].GetStringValue(),
		Nodes:      int(f["nodes"].GetNumberValue()),
		Reducers:   int(f["reducers"].GetNumberValue()),
		Splits:     int(f["splits"].GetNumberValue()),
		Keys:       int(f["keys"].GetNumberValue()),
		Records:    int64(f["records"].GetNumberValue()),
		InputBytes: int64(f["input_bytes"].GetNumberValue()),
	}, nil
}

// timestampValue stores t in its canonical protobuf JSON form.
func timestampValue(t time.Time) (*structpb.Value, error) {
	b, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, fmt.Errorf("encoding timestamp: %w", err)
	}
	s, err := strconv.Unquote(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("encoding timestamp: %w", err)
	}
	return structpb.NewStringValue(s), nil
}

func parseTimestamp(s string) (time.Time, error) {
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal([]byte(strconv.Quote(s)), ts); err != nil {
		return time.Time{}, fmt.Errorf("decoding timestamp %q: %w", s, err)
	}
	return ts.AsTime(), nil
}
