package consolidate

import (
	"strings"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

func requireString(raw models.RawObservation, field string) (string, error) {
	v, ok := raw.GetString(field)
	if !ok || v == "" {
		return "", &utils.MissingFieldError{Field: field, RecordId: RecordRef(raw)}
	}
	return v, nil
}

func requireTime(raw models.RawObservation, field string) (time.Time, error) {
	t, ok := raw.GetTime(field)
	if !ok {
		return time.Time{}, &utils.MissingFieldError{Field: field, RecordId: RecordRef(raw)}
	}
	return t, nil
}

// missionOf derives the mission from a satellite unit, "S2A" -> "S2".
func missionOf(satellite string) string {
	satellite = strings.TrimSpace(satellite)
	if len(satellite) < 2 {
		return satellite
	}
	return satellite[:2]
}

func mapDatatake(rc *ReportContext, raw models.RawObservation) (models.Entity, error) {
	// test recordings are planned but never produce operational data
	if recordingType, ok := raw.GetString("recording_type"); ok && strings.EqualFold(recordingType, "TEST") {
		return nil, nil
	}

	satellite, err := requireString(raw, "satellite_id")
	if err != nil {
		return nil, err
	}
	datatakeId, err := requireString(raw, "datatake_id")
	if err != nil {
		return nil, err
	}
	start, err := requireTime(raw, "observation_time_start")
	if err != nil {
		return nil, err
	}
	stop, err := requireTime(raw, "observation_time_stop")
	if err != nil {
		return nil, err
	}
	instrumentMode, err := requireString(raw, "instrument_mode")
	if err != nil {
		return nil, err
	}

	dt := &models.Datatake{
		DatatakeId:                datatakeId,
		InstrumentMode:            strings.ToUpper(instrumentMode),
		ObservationTimeStart:      start,
		ObservationTimeStop:       stop,
		ObservationDurationMicros: stop.Sub(start).Microseconds(),
	}
	dt.Satellite = satellite
	dt.Mission = missionOf(satellite)

	if scenes, ok := raw.GetInt64("number_of_scenes"); ok {
		dt.NumberOfScenes = scenes
	}
	if tiles, ok := raw.GetInt64("number_of_tiles"); ok {
		dt.NumberOfTiles = tiles
	}
	if timeliness, ok := raw.GetString("timeliness"); ok {
		dt.Timeliness = timeliness
	}
	if orbit, ok := raw.GetString("absolute_orbit"); ok {
		dt.AbsoluteOrbit = orbit
	}
	if relative, ok := raw.GetInt64("relative_orbit"); ok {
		dt.RelativeOrbit = relative
	}
	if polarization, ok := raw.GetString("polarization"); ok {
		dt.Polarization = polarization
	}
	return dt, nil
}

func mapDownlink(rc *ReportContext, raw models.RawObservation) (models.Entity, error) {
	satellite, err := requireString(raw, "satellite_id")
	if err != nil {
		return nil, err
	}
	orbit, err := requireString(raw, "downlink_orbit")
	if err != nil {
		return nil, err
	}
	station, err := requireString(raw, "ground_station")
	if err != nil {
		return nil, err
	}
	session, err := requireString(raw, "session_id")
	if err != nil {
		return nil, err
	}
	execution, err := requireTime(raw, "downlink_execution_time")
	if err != nil {
		return nil, err
	}

	dl := &models.Downlink{
		DownlinkOrbit: orbit,
		GroundStation: station,
		SessionId:     session,
		DownlinkStart: execution,
	}
	dl.Satellite = satellite
	dl.Mission = missionOf(satellite)

	if stop, ok := raw.GetTime("downlink_stop_time"); ok {
		dl.DownlinkStop = stop
	}
	if effective, ok := raw.GetTime("effective_downlink_start"); ok {
		dl.EffectiveDownlink = effective
	}
	if mode, ok := raw.GetString("downlink_mode"); ok {
		dl.DownlinkMode = mode
	}
	if latency, ok := raw.GetInt64("latency"); ok {
		dl.LatencyMinutes = latency
	}
	return dl, nil
}

func mapHktmAcquisition(rc *ReportContext, raw models.RawObservation) (models.Entity, error) {
	satellite, err := requireString(raw, "satellite_id")
	if err != nil {
		return nil, err
	}
	session, err := requireString(raw, "session_id")
	if err != nil {
		return nil, err
	}
	station, err := requireString(raw, "ground_station")
	if err != nil {
		return nil, err
	}
	execution, err := requireTime(raw, "execution_time")
	if err != nil {
		return nil, err
	}

	hk := &models.HktmCompleteness{
		Category:      models.HktmCategoryAcquisition,
		SessionId:     session,
		GroundStation: station,
		ExecutionTime: execution,
	}
	hk.Satellite = satellite
	hk.Mission = missionOf(satellite)

	if orbit, ok := raw.GetString("downlink_orbit"); ok {
		hk.DownlinkOrbit = orbit
	}
	return hk, nil
}

func mapHktmProduction(rc *ReportContext, raw models.RawObservation) (models.Entity, error) {
	satellite, err := requireString(raw, "satellite_id")
	if err != nil {
		return nil, err
	}
	orbit, err := requireString(raw, "downlink_orbit")
	if err != nil {
		return nil, err
	}
	execution, err := requireTime(raw, "execution_time")
	if err != nil {
		return nil, err
	}

	hk := &models.HktmCompleteness{
		Category:      models.HktmCategoryProduction,
		DownlinkOrbit: orbit,
		ExecutionTime: execution,
	}
	hk.Satellite = satellite
	hk.Mission = missionOf(satellite)

	if session, ok := raw.GetString("session_id"); ok {
		hk.SessionId = session
	}
	return hk, nil
}
