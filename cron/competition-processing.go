package cron

import (
	"context"
	"log"
	"time"

	"vibtrix/service"
)

// CompetitionProcessingLoop runs the engine pass on a schedule until the
// context expires. With a competition id it processes that competition
// only, otherwise every active one.
func CompetitionProcessingLoop(ctx context.Context, competitionService *service.CompetitionService, competitionId *string, sleepAfterEachRun time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if competitionId != nil {
			if err := competitionService.ProcessCompetition(*competitionId); err != nil {
				log.Printf("failed to process competition %s: %v", *competitionId, err)
			}
		} else {
			processed, err := competitionService.ProcessAllActive()
			if err != nil {
				log.Printf("failed to process active competitions: %v", err)
			} else {
				log.Printf("processed %d active competitions", processed)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepAfterEachRun):
		}
	}
}

// StateRepairLoop re-derives the terminated/active state of competitions
// whose stored flags contradict each other.
func StateRepairLoop(ctx context.Context, competitionService *service.CompetitionService, sleepAfterEachRun time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		repaired, err := competitionService.RepairInconsistentStates()
		if err != nil {
			log.Printf("failed to repair competition states: %v", err)
		} else if repaired > 0 {
			log.Printf("repaired %d inconsistent competitions", repaired)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepAfterEachRun):
		}
	}
}
