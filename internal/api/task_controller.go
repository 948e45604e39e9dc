package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anishthebud/look-at-me-2/internal/service"
)

// TaskController 任务控制器
type TaskController struct {
	taskService       service.TaskService
	projectionService service.ProjectionService
	pageSize          int
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService, projectionService service.ProjectionService, pageSize int) *TaskController {
	if pageSize <= 0 {
		pageSize = 8
	}
	return &TaskController{
		taskService:       taskService,
		projectionService: projectionService,
		pageSize:          pageSize,
	}
}

// Create 创建任务
func (c *TaskController) Create(ctx *gin.Context) {
	var req service.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := c.taskService.Create(ctx.Request.Context(), &req)
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// List 今日视图,分页
// 进行中的任务排最前,其次待办,同级按创建时间升序;页码越界时夹取
func (c *TaskController) List(ctx *gin.Context) {
	snapshot, err := c.projectionService.Snapshot(ctx.Request.Context())
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	page := 1
	if raw := ctx.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}

	service.SortTodayViews(snapshot.Today)
	views, info := service.Paginate(snapshot.Today, page, c.pageSize)
	Paginated(ctx, views, info)
}

// Upcoming 未来视图:未来的基准日期加上合成的投影,按生效日期升序
func (c *TaskController) Upcoming(ctx *gin.Context) {
	snapshot, err := c.projectionService.Snapshot(ctx.Request.Context())
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, snapshot.Future)
}

// Get 获取任务详情
func (c *TaskController) Get(ctx *gin.Context) {
	task, err := c.taskService.Get(ctx.Param("id"))
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Update 更新任务
func (c *TaskController) Update(ctx *gin.Context) {
	var req service.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := c.taskService.Update(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Delete 删除整条任务
func (c *TaskController) Delete(ctx *gin.Context) {
	if err := c.taskService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// DeleteOccurrence 删除某个未来日程
func (c *TaskController) DeleteOccurrence(ctx *gin.Context) {
	err := c.projectionService.DeleteOccurrence(ctx.Request.Context(), ctx.Param("id"), ctx.Param("date"))
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Start 开始任务
func (c *TaskController) Start(ctx *gin.Context) {
	task, err := c.taskService.Start(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Continue 回到进行中的任务
func (c *TaskController) Continue(ctx *gin.Context) {
	task, err := c.taskService.Continue(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Complete 完成任务
func (c *TaskController) Complete(ctx *gin.Context) {
	task, err := c.taskService.Complete(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		renderServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}
