package appctx

import "context"

// ContextKey is the shared type for values the pipeline threads through
// a request/run context.
type ContextKey string

var (
	ContextKeyMission       = ContextKey("mission")
	ContextKeySatellite     = ContextKey("satellite")
	ContextKeyReportName    = ContextKey("reportName")
	ContextKeyRunId         = ContextKey("runId")
	ContextKeyCorrelationId = ContextKey("correlationId")
)

func Set(ctx context.Context, key ContextKey, value interface{}) context.Context {
	return context.WithValue(ctx, key, value)
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v := ctx.Value(key)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func GetInt(ctx context.Context, key ContextKey) (int, bool) {
	v := ctx.Value(key)
	if v == nil {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}
