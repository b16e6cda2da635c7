package api

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	exerciseService service.ExerciseService,
	programService service.ProgramService,
	editorService service.EditorService,
	questionnaireService service.QuestionnaireService,
	wsOrigins []string,
) {

	authHandler := NewAuthHandler(authService)
	exerciseHandler := NewExerciseHandler(exerciseService)
	programHandler := NewProgramHandler(programService)
	editorHandler := NewEditorHandler(editorService, wsOrigins...)
	questionnaireHandler := NewQuestionnaireHandler(questionnaireService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// Everything below is coach-only.
		coach := protected.Group("")
		coach.Use(RoleMiddleware(domain.RoleCoach))

		// --- Clients ---
		coach.POST("/coach/clients", programHandler.AddClientByEmail)
		coach.GET("/coach/clients", programHandler.GetManagedClients)

		// --- Exercise Catalog ---
		exerciseGroup := coach.Group("/exercises")
		{
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.GetCoachExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.PUT("/:id", exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:id", exerciseHandler.DeleteExercise)
			exerciseGroup.POST("/:id/video/upload-url", exerciseHandler.RequestVideoUploadURL)
			exerciseGroup.POST("/:id/video/confirm", exerciseHandler.ConfirmVideoUpload)
			exerciseGroup.GET("/:id/video", exerciseHandler.GetVideoURL)
		}

		// --- Mesocycles ---
		mesoGroup := coach.Group("/mesocycles")
		{
			mesoGroup.POST("", programHandler.CreateMesocycle)
			mesoGroup.GET("", programHandler.GetMesocycles)
			mesoGroup.GET("/:id", programHandler.GetMesocycle)
			mesoGroup.DELETE("/:id", programHandler.DeleteMesocycle)
			mesoGroup.GET("/:id/export", programHandler.ExportMesocycle)
			mesoGroup.POST("/:id/training-days", programHandler.CreateTrainingDay)

			// Editor board
			mesoGroup.GET("/:id/board", editorHandler.GetBoard)
			mesoGroup.POST("/:id/board/drop", editorHandler.Drop)
			mesoGroup.POST("/:id/board/reload", editorHandler.Reload)
			mesoGroup.GET("/:id/board/ws", editorHandler.Stream)
		}

		// --- Day Exercises ---
		// These two are also the commit endpoints of persistence.HTTPAdapter.
		coach.PUT("/training-days/:dayId/exercises/order", programHandler.ReorderDayExercises)
		coach.POST("/day-exercises/:id/move", programHandler.MoveDayExercise)

		coach.POST("/training-days/:dayId/exercises", programHandler.AddDayExercise)
		coach.PATCH("/training-days/:dayId/exercises/:itemId", programHandler.UpdateDayExercise)
		coach.DELETE("/training-days/:dayId/exercises/:itemId", programHandler.RemoveDayExercise)

		// --- Questionnaire ---
		qGroup := coach.Group("/questionnaire")
		{
			qGroup.GET("", questionnaireHandler.GetQuestionnaire)
			qGroup.PUT("", questionnaireHandler.UpdateQuestionnaire)
			qGroup.DELETE("", questionnaireHandler.Reset)
			qGroup.POST("/next", questionnaireHandler.Next)
			qGroup.POST("/prev", questionnaireHandler.Prev)
			qGroup.POST("/client", questionnaireHandler.SelectClient)
			qGroup.POST("/interview", questionnaireHandler.LoadInterview)
			qGroup.POST("/generate", questionnaireHandler.Generate)
			qGroup.POST("/save", questionnaireHandler.Save)
		}
	}
}
