package admin

import (
	"strings"
	"time"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskRequest 创建/更新任务请求
type TaskRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	DueDate         *time.Time `json:"dueDate"`
	CustomerID      *uint      `json:"customerId"`
	AssignedAdminID *uint      `json:"assignedAdminId"`
}

func (r TaskRequest) toInput() service.TaskInput {
	return service.TaskInput{
		Title:           r.Title,
		Description:     r.Description,
		Status:          r.Status,
		Priority:        r.Priority,
		DueDate:         r.DueDate,
		CustomerID:      r.CustomerID,
		AssignedAdminID: r.AssignedAdminID,
	}
}

// GetTasks 任务列表
func (h *Handler) GetTasks(c *gin.Context) {
	page, pageSize := parsePagination(c)
	assignee, ok := handlershared.QueryUint(c, "assignedAdminId")
	if !ok {
		return
	}
	customerID, ok := handlershared.QueryUint(c, "customerId")
	if !ok {
		return
	}
	dueBefore, ok := handlershared.QueryTime(c, "dueBefore")
	if !ok {
		return
	}
	if strings.EqualFold(c.Query("mine"), "true") {
		adminID, ok := getAdminID(c)
		if !ok {
			return
		}
		assignee = adminID
	}
	tasks, total, err := h.TaskService.List(repository.TaskListFilter{
		Page:            page,
		PageSize:        pageSize,
		Search:          strings.TrimSpace(c.Query("search")),
		Status:          strings.TrimSpace(c.Query("status")),
		Priority:        strings.TrimSpace(c.Query("priority")),
		AssignedAdminID: assignee,
		CustomerID:      customerID,
		DueBefore:       dueBefore,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch tasks")
		return
	}
	respondPage(c, tasks, page, pageSize, total)
}

// GetTask 任务详情
func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.TaskService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch task")
		return
	}
	response.Success(c, task)
}

// CreateTask 创建任务，创建人为当前员工
func (h *Handler) CreateTask(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	task, err := h.TaskService.Create(adminID, req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to create task")
		return
	}
	response.Created(c, "task created", task)
}

// UpdateTask 更新任务
func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	task, err := h.TaskService.Update(id, req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to update task")
		return
	}
	response.SuccessWithMsg(c, "task updated", task)
}

// TaskStatusRequest 修改任务状态请求
type TaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatus 修改任务状态
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "status is required", nil)
		return
	}
	task, err := h.TaskService.ChangeStatus(id, req.Status)
	if err != nil {
		respondServiceError(c, err, "failed to update task status")
		return
	}
	response.SuccessWithMsg(c, "task status updated", task)
}

// DeleteTask 删除任务
func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.TaskService.Delete(id); err != nil {
		respondServiceError(c, err, "failed to delete task")
		return
	}
	response.SuccessWithMsg(c, "task deleted", nil)
}
