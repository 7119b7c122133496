// Package modules contains one engine.Module per supported external
// service. Each module maps its service's records onto candidate
// datapoints; dedup and posting are the engine's job.
package modules

import "time"

// daystamp renders a time as a Beeminder daystamp (YYYYMMDD).
func daystamp(t time.Time) string {
	return t.Format("20060102")
}

// nowOrDefault lets tests inject a clock; a nil func means time.Now.
func nowOrDefault(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
