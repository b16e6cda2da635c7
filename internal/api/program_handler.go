package api

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/export"
	"alcyxob/coach-app/internal/persistence"
	"alcyxob/coach-app/internal/service"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramHandler serves clients, mesocycles, training days and day exercises.
type ProgramHandler struct {
	programService service.ProgramService
}

// NewProgramHandler creates a new ProgramHandler.
func NewProgramHandler(programService service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programService: programService}
}

// --- Request Structs ---

type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

type MicrocycleRequest struct {
	WeekNumber     int                   `json:"weekNumber" binding:"min=0"`
	Name           string                `json:"name"`
	IntensityLevel domain.IntensityLevel `json:"intensityLevel" binding:"omitempty,oneof=low medium high deload"`
	Notes          string                `json:"notes"`
}

type CreateMesocycleRequest struct {
	Name        string              `json:"name" binding:"required"`
	Focus       string              `json:"focus"`
	Description string              `json:"description"`
	BlockNumber int                 `json:"blockNumber" binding:"min=0"`
	ClientID    string              `json:"clientId" binding:"omitempty"`
	StartDate   *time.Time          `json:"startDate"`
	Microcycles []MicrocycleRequest `json:"microcycles" binding:"dive"`
}

type CreateTrainingDayRequest struct {
	MicrocycleID string `json:"microcycleId" binding:"required"`
	DayNumber    int    `json:"dayNumber" binding:"min=0"`
	Name         string `json:"name"`
	Focus        string `json:"focus"`
	RestDay      bool   `json:"restDay"`
	Notes        string `json:"notes"`
}

type AddDayExerciseRequest struct {
	ExerciseID string                `json:"exerciseId" binding:"required"`
	Params     domain.ExerciseParams `json:"params"`
}

type UpdateDayExerciseRequest struct {
	Params domain.ExerciseParams `json:"params"`
}

// ReorderExercisesRequest is the full new order of a day. Field names match the editor's
// remote commit wire format.
type ReorderExercisesRequest struct {
	ExerciseIDs []string `json:"exercise_ids" binding:"required"`
}

// MoveExerciseRequest moves a day exercise to another day at NewIndex.
type MoveExerciseRequest struct {
	FromDayID string `json:"from_day_id" binding:"required"`
	ToDayID   string `json:"to_day_id" binding:"required"`
	NewIndex  *int   `json:"new_index" binding:"required,min=0"`
}

// --- Client Management ---

// AddClientByEmail godoc
// @Summary Link a registered client to the coach
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AddClientRequest true "Client email"
// @Success 200 {object} UserResponse
// @Failure 404 {object} gin.H "Client not found"
// @Failure 409 {object} gin.H "Client already managed by another coach"
// @Router /coach/clients [post]
func (h *ProgramHandler) AddClientByEmail(c *gin.Context) {
	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	client, err := h.programService.AddClientByEmail(c.Request.Context(), coachID, req.ClientEmail)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetManagedClients godoc
// @Summary List the coach's clients
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Router /coach/clients [get]
func (h *ProgramHandler) GetManagedClients(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	clients, err := h.programService.GetManagedClients(c.Request.Context(), coachID)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(clients))
}

// --- Mesocycles ---

// CreateMesocycle godoc
// @Summary Create a mesocycle with its weeks
// @Tags Mesocycles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateMesocycleRequest true "Mesocycle"
// @Success 201 {object} domain.Mesocycle
// @Router /mesocycles [post]
func (h *ProgramHandler) CreateMesocycle(c *gin.Context) {
	var req CreateMesocycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}

	in := service.MesocycleInput{
		Name:        req.Name,
		Focus:       req.Focus,
		Description: req.Description,
		BlockNumber: req.BlockNumber,
		StartDate:   req.StartDate,
	}
	if req.ClientID != "" {
		clientID, err := primitive.ObjectIDFromHex(req.ClientID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
			return
		}
		in.ClientID = &clientID
	}
	for _, mc := range req.Microcycles {
		in.Microcycles = append(in.Microcycles, domain.Microcycle{
			WeekNumber:     mc.WeekNumber,
			Name:           mc.Name,
			IntensityLevel: mc.IntensityLevel,
			Notes:          mc.Notes,
		})
	}

	meso, err := h.programService.CreateMesocycle(c.Request.Context(), coachID, in)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meso)
}

// GetMesocycles godoc
// @Summary List the coach's mesocycles
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Mesocycle
// @Router /mesocycles [get]
func (h *ProgramHandler) GetMesocycles(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesos, err := h.programService.GetMesocycles(c.Request.Context(), coachID)
	if err != nil {
		programError(c, err)
		return
	}
	if mesos == nil {
		mesos = []domain.Mesocycle{}
	}
	c.JSON(http.StatusOK, mesos)
}

// GetMesocycle godoc
// @Summary Get a mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 200 {object} domain.Mesocycle
// @Router /mesocycles/{id} [get]
func (h *ProgramHandler) GetMesocycle(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	meso, err := h.programService.GetMesocycle(c.Request.Context(), coachID, mesoID)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, meso)
}

// ExportMesocycle godoc
// @Summary Download a mesocycle as a spreadsheet
// @Description One overview sheet plus one sheet per week, exercises in stored order.
// @Tags Mesocycles
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 200 {file} file
// @Router /mesocycles/{id}/export [get]
func (h *ProgramHandler) ExportMesocycle(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	f, meso, err := h.programService.ExportMesocycle(c.Request.Context(), coachID, mesoID)
	if err != nil {
		programError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(meso)+`"`)
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("ERROR: Failed to write workbook of mesocycle %s: %v", mesoID.Hex(), err)
	}
}

// DeleteMesocycle godoc
// @Summary Delete a mesocycle and its training days
// @Tags Mesocycles
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 204 "No Content"
// @Router /mesocycles/{id} [delete]
func (h *ProgramHandler) DeleteMesocycle(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.programService.DeleteMesocycle(c.Request.Context(), coachID, mesoID); err != nil {
		programError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateTrainingDay godoc
// @Summary Add a training day to a week of the mesocycle
// @Tags Mesocycles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Param body body CreateTrainingDayRequest true "Training day"
// @Success 201 {object} domain.TrainingDay
// @Router /mesocycles/{id}/training-days [post]
func (h *ProgramHandler) CreateTrainingDay(c *gin.Context) {
	var req CreateTrainingDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	microcycleID, err := primitive.ObjectIDFromHex(req.MicrocycleID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid microcycleId format.")
		return
	}

	day, err := h.programService.CreateTrainingDay(c.Request.Context(), coachID, mesoID, service.TrainingDayInput{
		MicrocycleID: microcycleID,
		DayNumber:    req.DayNumber,
		Name:         req.Name,
		Focus:        req.Focus,
		RestDay:      req.RestDay,
		Notes:        req.Notes,
	})
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusCreated, day)
}

// --- Day Exercises ---

// AddDayExercise godoc
// @Summary Append a catalog exercise to a training day
// @Tags Training Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Param body body AddDayExerciseRequest true "Exercise and prescription"
// @Success 201 {object} domain.DayExercise
// @Router /training-days/{dayId}/exercises [post]
func (h *ProgramHandler) AddDayExercise(c *gin.Context) {
	var req AddDayExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	exerciseID, err := primitive.ObjectIDFromHex(req.ExerciseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exerciseId format.")
		return
	}
	added, err := h.programService.AddDayExercise(c.Request.Context(), coachID, dayID, exerciseID, req.Params)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// UpdateDayExercise godoc
// @Summary Replace the prescription of a day exercise
// @Tags Training Days
// @Accept json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Param itemId path string true "Day exercise ID"
// @Param body body UpdateDayExerciseRequest true "Prescription"
// @Success 204 "No Content"
// @Router /training-days/{dayId}/exercises/{itemId} [patch]
func (h *ProgramHandler) UpdateDayExercise(c *gin.Context) {
	var req UpdateDayExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	if err := h.programService.UpdateDayExercise(c.Request.Context(), coachID, dayID, itemID, req.Params); err != nil {
		programError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveDayExercise godoc
// @Summary Remove an exercise from a training day
// @Tags Training Days
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Param itemId path string true "Day exercise ID"
// @Success 204 "No Content"
// @Router /training-days/{dayId}/exercises/{itemId} [delete]
func (h *ProgramHandler) RemoveDayExercise(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId")
	if !ok {
		return
	}
	if err := h.programService.RemoveDayExercise(c.Request.Context(), coachID, dayID, itemID); err != nil {
		programError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderDayExercises godoc
// @Summary Store a new order of a day's exercises
// @Description The body lists every exercise of the day exactly once.
// @Tags Training Days
// @Accept json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Param body body ReorderExercisesRequest true "Ordered day exercise IDs"
// @Success 204 "No Content"
// @Failure 409 {object} gin.H "Stored order changed"
// @Router /training-days/{dayId}/exercises/order [put]
func (h *ProgramHandler) ReorderDayExercises(c *gin.Context) {
	var req ReorderExercisesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	dayID, ok := pathObjectID(c, "dayId")
	if !ok {
		return
	}
	ids := make([]primitive.ObjectID, len(req.ExerciseIDs))
	for i, raw := range req.ExerciseIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exercise id "+raw)
			return
		}
		ids[i] = id
	}
	if err := h.programService.ReorderDayExercises(commitContext(c), coachID, dayID, ids); err != nil {
		programError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveDayExercise godoc
// @Summary Move a day exercise to another training day
// @Description Both days are written or neither.
// @Tags Training Days
// @Accept json
// @Security BearerAuth
// @Param id path string true "Day exercise ID"
// @Param body body MoveExerciseRequest true "Source, destination and index"
// @Success 204 "No Content"
// @Failure 409 {object} gin.H "Stored order changed"
// @Router /day-exercises/{id}/move [post]
func (h *ProgramHandler) MoveDayExercise(c *gin.Context) {
	var req MoveExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	fromDayID, err1 := primitive.ObjectIDFromHex(req.FromDayID)
	toDayID, err2 := primitive.ObjectIDFromHex(req.ToDayID)
	if err1 != nil || err2 != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day id format.")
		return
	}
	if err := h.programService.MoveDayExercise(commitContext(c), coachID, itemID, fromDayID, toDayID, *req.NewIndex); err != nil {
		programError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// commitContext marks requests sent by an editor's HTTPAdapter as that editor's own commits.
func commitContext(c *gin.Context) context.Context {
	if c.GetHeader(persistence.EditorCommitHeader) != "" {
		return service.WithEditorCommit(c.Request.Context())
	}
	return c.Request.Context()
}

func programError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrMesocycleNotFound),
		errors.Is(err, service.ErrMicrocycleNotFound),
		errors.Is(err, service.ErrTrainingDayNotFound),
		errors.Is(err, service.ErrDayExerciseNotFound),
		errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMesocycleAccessDenied),
		errors.Is(err, service.ErrTrainingDayAccessDenied),
		errors.Is(err, service.ErrExerciseAccessDenied),
		errors.Is(err, service.ErrClientNotManaged):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrClientAlreadyAssigned),
		errors.Is(err, service.ErrOrderConflict),
		errors.Is(err, service.ErrEditorBusy):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEditorClosed):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrClientNotRole),
		errors.Is(err, service.ErrEmptyProgram):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: Program request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "Failed to process request.")
	}
}
