package repository

import (
	"time"

	"gorm.io/gorm"
)

type JobType string

const (
	ProcessCompetitions JobType = "ProcessCompetitions"
	RepairCompetitions  JobType = "RepairCompetitions"
)

type RecurringJob struct {
	JobType                  JobType   `gorm:"primaryKey;not null;unique"`
	CompetitionId            *string   `gorm:"null"`
	SleepAfterEachRunSeconds int       `gorm:"not null"`
	EndDate                  time.Time `gorm:"not null"`
}

type RecurringJobsRepository struct {
	DB *gorm.DB
}

func NewRecurringJobsRepository(db *gorm.DB) *RecurringJobsRepository {
	return &RecurringJobsRepository{DB: db}
}

func (r *RecurringJobsRepository) CreateRecurringJob(job *RecurringJob) error {
	r.DB.Delete(&RecurringJob{}, "job_type = ?", job.JobType)
	return r.DB.Create(job).Error
}

func (r *RecurringJobsRepository) GetRecurringJob(jobType JobType) (job *RecurringJob, err error) {
	err = r.DB.Where("job_type = ?", jobType).First(&job).Error
	return job, err
}

func (r *RecurringJobsRepository) GetAllJobs() (jobs []*RecurringJob, err error) {
	err = r.DB.Find(&jobs).Error
	return jobs, err
}

func (r *RecurringJobsRepository) DeleteRecurringJob(jobType JobType) error {
	return r.DB.Delete(&RecurringJob{}, "job_type = ?", jobType).Error
}
