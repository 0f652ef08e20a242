package detect

import (
	"context"
	"fmt"

	"argus/core"
)

const (
	defaultImpossibleTravelWindow = 60

	// travelDistanceKM and travelMaxGap define "impossible": two logins
	// further apart than this distance, closer together than this gap.
	travelDistanceKM = 500
	travelMaxGapHrs  = 2
)

// ImpossibleTravelRule detects the same actor logging in successfully from
// locations too far apart for the elapsed time. Only successful logins are
// considered; failures say nothing about where the account holder is.
// MITRE ATT&CK: T1078 (Valid Accounts).
type ImpossibleTravelRule struct {
	windowMinutes int
}

// NewImpossibleTravelRule creates the rule with catalog settings applied.
func NewImpossibleTravelRule(settings RuleSettings) *ImpossibleTravelRule {
	return &ImpossibleTravelRule{
		windowMinutes: settings.windowOr(defaultImpossibleTravelWindow),
	}
}

func (r *ImpossibleTravelRule) ID() string   { return "impossible_travel" }
func (r *ImpossibleTravelRule) Name() string { return "Impossible Travel Detection" }
func (r *ImpossibleTravelRule) Description() string {
	return "Detects logins from geographically impossible locations within short timeframes"
}
func (r *ImpossibleTravelRule) Severity() string   { return core.SeverityHigh }
func (r *ImpossibleTravelRule) WindowMinutes() int { return r.windowMinutes }

// Detect walks consecutive chronologically-ordered login pairs per actor.
// Only consecutive pairs are compared, not all pairs, so one compromised
// session does not fan out into combinatorially many duplicate findings.
func (r *ImpossibleTravelRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		Actions:         loginActions,
		Outcome:         core.OutcomeSuccess,
		RequireSourceIP: true,
		RequireActor:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query successful logins: %w", err)
	}

	// Events arrive ordered by timestamp, so per-actor slices stay
	// chronological.
	byActor := make(map[string][]core.Event)
	for _, e := range matched {
		byActor[e.Actor] = append(byActor[e.Actor], e)
	}

	var findings []core.Finding
	for _, actor := range sortedKeys(byActor) {
		logins := byActor[actor]
		for i := 0; i+1 < len(logins); i++ {
			first, second := logins[i], logins[i+1]

			distanceKM := estimateDistanceKM(first.SourceIP, second.SourceIP)
			deltaHours := second.Timestamp.Sub(first.Timestamp).Hours()

			if distanceKM <= travelDistanceKM || deltaHours >= travelMaxGapHrs {
				continue
			}

			speedKMH := 0.0
			if deltaHours > 0 {
				speedKMH = round2(distanceKM / deltaHours)
			}

			findings = append(findings, core.Finding{
				RuleID:   r.ID(),
				Severity: r.Severity(),
				Summary: fmt.Sprintf("Impossible travel detected: %s logged in from %s and %s within %.1f hours",
					actor, first.SourceIP, second.SourceIP, deltaHours),
				Evidence: core.Evidence{
					"actor": actor,
					"location1": map[string]interface{}{
						"ip":        first.SourceIP,
						"timestamp": timestamp(first.Timestamp),
						"event_id":  first.ID,
					},
					"location2": map[string]interface{}{
						"ip":        second.SourceIP,
						"timestamp": timestamp(second.Timestamp),
						"event_id":  second.ID,
					},
					"estimated_distance_km": distanceKM,
					"time_delta_hours":      round2(deltaHours),
					"impossible_speed_kmh":  speedKMH,
				},
				AlertTime:   window.End,
				WindowStart: window.Start,
				WindowEnd:   window.End,
				Subjects:    []core.Subject{{Type: core.SubjectActor, Value: actor}},
			})
		}
	}

	return findings, nil
}
