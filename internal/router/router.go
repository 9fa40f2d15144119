package router

import (
	"github.com/FrankyKyaw/instapay/internal/handler"
	"github.com/gin-gonic/gin"
)

func Setup(taskHandler *handler.TaskHandler, employeeHandler *handler.EmployeeHandler) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "instapay",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 任务相关路由
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.GetTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.GET("/:id/status", taskHandler.GetTaskStatus)
			tasks.PUT("/:id/status", taskHandler.UpdateTaskStatus)
		}

		// 员工相关路由
		employees := v1.Group("/employees")
		{
			employees.POST("", employeeHandler.Register)
			employees.GET("", employeeHandler.GetEmployees)
			employees.GET("/:id/balances", employeeHandler.GetEmployeeBalances)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
