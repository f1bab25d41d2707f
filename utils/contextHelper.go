package utils

import (
	"context"

	"bitbucket.org/sgdatafocus/telemetry_backend/appctx"
)

func GetMissionFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyMission)
}

func GetSatelliteFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeySatellite)
}

func GetReportNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyReportName)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyRunId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func SetMissionInContext(ctx context.Context, mission string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyMission, mission)
}

func SetSatelliteInContext(ctx context.Context, satellite string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySatellite, satellite)
}

func SetReportNameInContext(ctx context.Context, reportName string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyReportName, reportName)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyRunId, runId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}
