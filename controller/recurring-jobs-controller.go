package controller

import (
	"fmt"
	"time"

	"vibtrix/competition"
	"vibtrix/cron"
	"vibtrix/repository"
	"vibtrix/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RecurringJobsController struct {
	recurringJobService *cron.RecurringJobService
}

var jobList = []repository.JobType{
	repository.ProcessCompetitions,
	repository.RepairCompetitions,
}

func NewRecurringJobsController(recurringJobService *cron.RecurringJobService) *RecurringJobsController {
	return &RecurringJobsController{
		recurringJobService: recurringJobService,
	}
}

func setupRecurringJobsController(db *gorm.DB, engine *competition.Engine) []RouteInfo {
	e := NewRecurringJobsController(cron.NewRecurringJobService(db, engine))
	basePath := "/jobs"
	routes := []RouteInfo{
		{Method: "GET", Path: "", HandlerFunc: e.getJobsHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "POST", Path: "", HandlerFunc: e.startJobHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "DELETE", Path: "/:job_type", HandlerFunc: e.stopJobHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

type JobCreate struct {
	JobType                  repository.JobType `json:"job_type" binding:"required"`
	CompetitionId            *string            `json:"competition_id"`
	SleepAfterEachRunSeconds int                `json:"sleep_after_each_run_seconds" binding:"required"`
	DurationInSeconds        *int               `json:"duration_in_seconds"`
	EndDate                  *time.Time         `json:"end_date"`
}

func (j *JobCreate) toJob() (*cron.RecurringJob, error) {
	if !utils.Contains(jobList, j.JobType) {
		return nil, fmt.Errorf("job type does not exist")
	}
	if j.DurationInSeconds != nil && j.EndDate != nil {
		return nil, fmt.Errorf("cannot specify both duration and end date")
	}
	if j.DurationInSeconds == nil && j.EndDate == nil {
		return nil, fmt.Errorf("must specify either duration or end date")
	}
	if j.DurationInSeconds != nil {
		endDate := time.Now().Add(time.Duration(*j.DurationInSeconds) * time.Second)
		j.EndDate = &endDate
	}
	return &cron.RecurringJob{
		JobType:                  j.JobType,
		CompetitionId:            j.CompetitionId,
		SleepAfterEachRunSeconds: j.SleepAfterEachRunSeconds,
		EndDate:                  *j.EndDate,
	}, nil
}

// @id GetJobs
// @Description Lists the recurring jobs that are currently scheduled
// @Tags jobs
// @Produce json
// @Success 200 {array} cron.RecurringJob
// @Router /jobs [get]
func (e *RecurringJobsController) getJobsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs := make([]*cron.RecurringJob, 0)
		for _, jobType := range jobList {
			if job, ok := e.recurringJobService.Jobs[jobType]; ok && job != nil {
				jobs = append(jobs, job)
			}
		}
		c.JSON(200, jobs)
	}
}

// @id StartJob
// @Description Starts a recurring job
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body JobCreate true "Job to create"
// @Success 201 {object} cron.RecurringJob
// @Router /jobs [post]
func (e *RecurringJobsController) startJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var jobCreate JobCreate
		if err := c.BindJSON(&jobCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		job, err := jobCreate.toJob()
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := e.recurringJobService.StartJob(job); err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(201, job)
	}
}

// @id StopJob
// @Description Stops a recurring job
// @Tags jobs
// @Param job_type path string true "Job type"
// @Success 204
// @Router /jobs/{job_type} [delete]
func (e *RecurringJobsController) stopJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := e.recurringJobService.StopJob(repository.JobType(c.Param("job_type"))); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(204, nil)
	}
}
