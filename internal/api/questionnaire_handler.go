package api

import (
	"alcyxob/coach-app/internal/aigen"
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/questionnaire"
	"alcyxob/coach-app/internal/service"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionnaireHandler serves the program generation questionnaire.
type QuestionnaireHandler struct {
	questionnaireService service.QuestionnaireService
}

// NewQuestionnaireHandler creates a new QuestionnaireHandler.
func NewQuestionnaireHandler(questionnaireService service.QuestionnaireService) *QuestionnaireHandler {
	return &QuestionnaireHandler{questionnaireService: questionnaireService}
}

// UpdateQuestionnaireRequest carries changed fields only.
type UpdateQuestionnaireRequest struct {
	Answers      *questionnaire.Answers `json:"answers"`
	CreationMode *aigen.CreationMode    `json:"creation_mode" binding:"omitempty,oneof=template client"`
	TemplateName *string                `json:"template_name"`
	CurrentStep  *int                   `json:"current_step" binding:"omitempty,min=0"`
}

type SelectClientRequest struct {
	ClientID string `json:"clientId" binding:"required"`
}

// GetQuestionnaire godoc
// @Summary Get the coach's questionnaire
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 200 {object} questionnaire.State
// @Router /questionnaire [get]
func (h *QuestionnaireHandler) GetQuestionnaire(c *gin.Context) {
	h.respond(c, h.questionnaireService.Get)
}

// UpdateQuestionnaire godoc
// @Summary Change answers, mode, template name or step
// @Tags Questionnaire
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateQuestionnaireRequest true "Changed fields"
// @Success 200 {object} questionnaire.State
// @Router /questionnaire [put]
func (h *QuestionnaireHandler) UpdateQuestionnaire(c *gin.Context) {
	var req UpdateQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.respond(c, func(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
		return h.questionnaireService.Update(ctx, coachID, service.QuestionnaireUpdate{
			Answers:      req.Answers,
			Mode:         req.CreationMode,
			TemplateName: req.TemplateName,
			Step:         req.CurrentStep,
		})
	})
}

// Next godoc
// @Summary Go to the next questionnaire step
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 200 {object} questionnaire.State
// @Router /questionnaire/next [post]
func (h *QuestionnaireHandler) Next(c *gin.Context) {
	h.respond(c, h.questionnaireService.Next)
}

// Prev godoc
// @Summary Go to the previous questionnaire step
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 200 {object} questionnaire.State
// @Router /questionnaire/prev [post]
func (h *QuestionnaireHandler) Prev(c *gin.Context) {
	h.respond(c, h.questionnaireService.Prev)
}

// SelectClient godoc
// @Summary Pick the client the program is for
// @Description Also checks whether the client's intake interview is complete.
// @Tags Questionnaire
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SelectClientRequest true "Client"
// @Success 200 {object} questionnaire.State
// @Router /questionnaire/client [post]
func (h *QuestionnaireHandler) SelectClient(c *gin.Context) {
	var req SelectClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}
	h.respond(c, func(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
		return h.questionnaireService.SelectClient(ctx, coachID, clientID)
	})
}

// LoadInterview godoc
// @Summary Prefill answers from the selected client's interview
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 200 {object} questionnaire.State
// @Router /questionnaire/interview [post]
func (h *QuestionnaireHandler) LoadInterview(c *gin.Context) {
	h.respond(c, h.questionnaireService.LoadInterview)
}

// Generate godoc
// @Summary Generate a program from the answers
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Param preview query bool false "Generate a shortened preview"
// @Success 200 {object} questionnaire.State
// @Failure 422 {object} gin.H "Required answers missing"
// @Failure 502 {object} gin.H "Generation failed"
// @Router /questionnaire/generate [post]
func (h *QuestionnaireHandler) Generate(c *gin.Context) {
	preview := c.Query("preview") == "true"
	h.respond(c, func(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
		return h.questionnaireService.Generate(ctx, coachID, preview)
	})
}

// Save godoc
// @Summary Store the generated program as mesocycles
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 201 {array} domain.Mesocycle
// @Router /questionnaire/save [post]
func (h *QuestionnaireHandler) Save(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	created, err := h.questionnaireService.Save(c.Request.Context(), coachID)
	if err != nil {
		questionnaireError(c, err)
		return
	}
	if created == nil {
		created = []domain.Mesocycle{}
	}
	c.JSON(http.StatusCreated, created)
}

// Reset godoc
// @Summary Start a new questionnaire
// @Tags Questionnaire
// @Produce json
// @Security BearerAuth
// @Success 200 {object} questionnaire.State
// @Router /questionnaire [delete]
func (h *QuestionnaireHandler) Reset(c *gin.Context) {
	h.respond(c, h.questionnaireService.Reset)
}

func (h *QuestionnaireHandler) respond(c *gin.Context, fn func(context.Context, primitive.ObjectID) (questionnaire.State, error)) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := fn(c.Request.Context(), coachID)
	if err != nil {
		questionnaireError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func questionnaireError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, questionnaire.ErrIncomplete):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidStep), errors.Is(err, service.ErrNoClientChosen):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNothingToSave):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, aigen.ErrGeneration), errors.Is(err, aigen.ErrNoProgram):
		abortWithError(c, http.StatusBadGateway, err.Error())
	default:
		programError(c, err)
	}
}

