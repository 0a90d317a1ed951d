package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"vibtrix/competition"
	"vibtrix/repository"
	"vibtrix/service"

	"gorm.io/gorm"
)

type RecurringJob struct {
	JobType                  repository.JobType `json:"job_type" binding:"required"`
	CompetitionId            *string            `json:"competition_id"`
	SleepAfterEachRunSeconds int                `json:"sleep_after_each_run_seconds" binding:"required"`
	Cancel                   context.CancelFunc `json:"-"`
	EndDate                  time.Time          `json:"end_date" binding:"required"`
}

type RecurringJobService struct {
	competitionService *service.CompetitionService
	jobRepository      *repository.RecurringJobsRepository
	Jobs               map[repository.JobType]*RecurringJob
}

func NewRecurringJobService(db *gorm.DB, engine *competition.Engine) *RecurringJobService {
	s := &RecurringJobService{
		competitionService: service.NewCompetitionService(db, engine),
		jobRepository:      repository.NewRecurringJobsRepository(db),
		Jobs:               make(map[repository.JobType]*RecurringJob),
	}
	jobs, err := s.InitializeJobs()
	if err != nil {
		log.Fatal(err)
	}
	s.Jobs = jobs
	return s
}

// InitializeJobs restarts the persisted jobs that have not expired yet, so
// a redeploy does not silently stop competition processing.
func (s *RecurringJobService) InitializeJobs() (map[repository.JobType]*RecurringJob, error) {
	jobs := make(map[repository.JobType]*RecurringJob)
	repoJobs, err := s.jobRepository.GetAllJobs()
	if err != nil {
		return jobs, err
	}
	for _, job := range repoJobs {
		jobs[job.JobType] = &RecurringJob{
			JobType:                  job.JobType,
			CompetitionId:            job.CompetitionId,
			SleepAfterEachRunSeconds: job.SleepAfterEachRunSeconds,
			EndDate:                  job.EndDate,
		}
		serviceJob := jobs[job.JobType]
		if job.EndDate.Before(time.Now()) {
			continue
		}
		err := s.StartJob(serviceJob)
		if err != nil {
			fmt.Println(err)
			if serviceJob.Cancel != nil {
				serviceJob.Cancel()
			}
			jobs[job.JobType] = nil
		}
	}
	return jobs, nil
}

func (s *RecurringJobService) StartJob(job *RecurringJob) error {
	existingJob, ok := s.Jobs[job.JobType]
	if ok {
		if existingJob.Cancel != nil {
			existingJob.Cancel()
		}
	}
	err := s.jobRepository.CreateRecurringJob(&repository.RecurringJob{
		JobType:                  job.JobType,
		CompetitionId:            job.CompetitionId,
		SleepAfterEachRunSeconds: job.SleepAfterEachRunSeconds,
		EndDate:                  job.EndDate,
	})
	if err != nil {
		return err
	}
	s.Jobs[job.JobType] = job

	ctx, cancel := context.WithTimeout(context.Background(), time.Until(job.EndDate))
	job.Cancel = cancel
	sleep := time.Duration(job.SleepAfterEachRunSeconds) * time.Second

	switch job.JobType {
	case repository.ProcessCompetitions:
		go CompetitionProcessingLoop(ctx, s.competitionService, job.CompetitionId, sleep)
		return nil
	case repository.RepairCompetitions:
		go StateRepairLoop(ctx, s.competitionService, sleep)
		return nil
	default:
		cancel()
		return fmt.Errorf("invalid job type")
	}
}

func (s *RecurringJobService) StopJob(jobType repository.JobType) error {
	job, ok := s.Jobs[jobType]
	if !ok {
		return fmt.Errorf("no running job of type %s", jobType)
	}
	if job.Cancel != nil {
		job.Cancel()
	}
	delete(s.Jobs, jobType)
	return s.jobRepository.DeleteRecurringJob(jobType)
}
