package service

import (
	"alcyxob/coach-app/internal/aigen"
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/questionnaire"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNothingToSave  = errors.New("no generated program to save")
	ErrNoClientChosen = errors.New("no client selected")
	ErrInvalidStep    = errors.New("questionnaire step out of range")
)

// ProgramGenerator is the program generation backend; *aigen.Client implements it.
type ProgramGenerator interface {
	Generate(ctx context.Context, req aigen.Request) (*aigen.Response, error)
	Preview(ctx context.Context, req aigen.Request) (*aigen.Response, error)
	ValidateInterview(ctx context.Context, clientID string) (*aigen.InterviewValidation, error)
	InterviewData(ctx context.Context, clientID string) (*aigen.InterviewData, error)
}

// QuestionnaireUpdate carries the fields a coach changed. Nil fields are left alone.
type QuestionnaireUpdate struct {
	Answers      *questionnaire.Answers
	Mode         *aigen.CreationMode
	TemplateName *string
	Step         *int
}

// --- Service Interface ---
type QuestionnaireService interface {
	Get(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error)
	Update(ctx context.Context, coachID primitive.ObjectID, in QuestionnaireUpdate) (questionnaire.State, error)
	Next(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error)
	Prev(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error)
	// SelectClient picks one of the coach's clients and checks their intake interview.
	SelectClient(ctx context.Context, coachID, clientID primitive.ObjectID) (questionnaire.State, error)
	// LoadInterview prefills the answers from the selected client's interview.
	LoadInterview(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error)
	Generate(ctx context.Context, coachID primitive.ObjectID, preview bool) (questionnaire.State, error)
	// Save imports the generated program and starts a new questionnaire.
	Save(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error)
	Reset(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error)
}

// --- Service Implementation ---

type coachQuestionnaire struct {
	mu    sync.Mutex
	state *questionnaire.State
}

type questionnaireService struct {
	programs  ProgramService
	generator ProgramGenerator
	snapshots questionnaire.Snapshotter
	now       func() time.Time

	mu     sync.Mutex
	states map[primitive.ObjectID]*coachQuestionnaire
}

// NewQuestionnaireService creates a new instance of questionnaireService.
func NewQuestionnaireService(programs ProgramService, generator ProgramGenerator, snapshots questionnaire.Snapshotter) QuestionnaireService {
	return &questionnaireService{
		programs:  programs,
		generator: generator,
		snapshots: snapshots,
		now:       time.Now,
		states:    make(map[primitive.ObjectID]*coachQuestionnaire),
	}
}

// with runs fn on the coach's questionnaire, restoring it from the snapshot store on first use,
// and stores the snapshot afterwards.
func (s *questionnaireService) with(ctx context.Context, coachID primitive.ObjectID, fn func(st *questionnaire.State) error) (questionnaire.State, error) {
	s.mu.Lock()
	cq, ok := s.states[coachID]
	if !ok {
		cq = &coachQuestionnaire{}
		s.states[coachID] = cq
	}
	s.mu.Unlock()

	cq.mu.Lock()
	defer cq.mu.Unlock()

	if cq.state == nil {
		st := questionnaire.New(s.now())
		snap, found, err := s.snapshots.Load(ctx, coachID.Hex())
		if err != nil {
			// A broken snapshot only costs the coach their draft.
			log.Printf("WARN: Failed to load questionnaire snapshot for coach %s: %v", coachID.Hex(), err)
		} else if found {
			st.Restore(snap)
		}
		cq.state = st
	}

	fnErr := fn(cq.state)
	if err := s.snapshots.Save(ctx, coachID.Hex(), cq.state.Snapshot()); err != nil {
		log.Printf("WARN: Failed to save questionnaire snapshot for coach %s: %v", coachID.Hex(), err)
	}
	return *cq.state, fnErr
}

func (s *questionnaireService) Get(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
	return s.with(ctx, coachID, func(*questionnaire.State) error { return nil })
}

// Update merges changed answers and settings.
func (s *questionnaireService) Update(ctx context.Context, coachID primitive.ObjectID, in QuestionnaireUpdate) (questionnaire.State, error) {
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		if in.Step != nil && !st.GoTo(*in.Step) {
			return ErrInvalidStep
		}
		if in.Answers != nil {
			st.SetAnswers(*in.Answers)
		}
		if in.Mode != nil {
			st.SetMode(*in.Mode)
		}
		if in.TemplateName != nil {
			st.SetTemplateName(*in.TemplateName)
		}
		return nil
	})
}

func (s *questionnaireService) Next(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		st.Next()
		return nil
	})
}

func (s *questionnaireService) Prev(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		st.Prev()
		return nil
	})
}

// SelectClient requires the client to be managed by the coach. The interview check is advisory:
// a failed check leaves the client selected with the error recorded.
func (s *questionnaireService) SelectClient(ctx context.Context, coachID, clientID primitive.ObjectID) (questionnaire.State, error) {
	clients, err := s.programs.GetManagedClients(ctx, coachID)
	if err != nil {
		return questionnaire.State{}, err
	}
	var client *domain.User
	for i := range clients {
		if clients[i].ID == clientID {
			client = &clients[i]
			break
		}
	}
	if client == nil {
		return questionnaire.State{}, ErrClientNotManaged
	}

	validation, vErr := s.generator.ValidateInterview(ctx, clientID.Hex())
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		st.SelectClient(clientID.Hex(), client.Name)
		st.SetMode(aigen.ModeClient)
		st.Err = ""
		if vErr != nil {
			st.Err = vErr.Error()
			return nil
		}
		st.Validation = validation
		return nil
	})
}

func (s *questionnaireService) LoadInterview(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
	current, err := s.Get(ctx, coachID)
	if err != nil {
		return current, err
	}
	if current.ClientID == "" {
		return current, ErrNoClientChosen
	}
	data, err := s.generator.InterviewData(ctx, current.ClientID)
	if err != nil {
		return current, err
	}
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		st.ApplyInterview(*data)
		st.Err = ""
		return nil
	})
}

// Generate builds the request from the answers and runs the generator. The questionnaire lock is
// not held during the call; the outcome is recorded when it returns.
func (s *questionnaireService) Generate(ctx context.Context, coachID primitive.ObjectID, preview bool) (questionnaire.State, error) {
	current, err := s.Get(ctx, coachID)
	if err != nil {
		return current, err
	}
	req := current.BuildRequest("", s.now())
	if err := questionnaire.Validate(req); err != nil {
		return current, err
	}

	call := s.generator.Generate
	if preview {
		call = s.generator.Preview
	}
	resp, genErr := call(ctx, req)
	if genErr != nil {
		log.Printf("ERROR: Program generation for coach %s failed: %v", coachID.Hex(), genErr)
	}
	return s.with(ctx, coachID, func(st *questionnaire.State) error {
		if genErr != nil {
			st.Err = genErr.Error()
			return genErr
		}
		st.Generated = resp
		st.Err = ""
		return nil
	})
}

func (s *questionnaireService) Save(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error) {
	current, err := s.Get(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if current.Generated == nil || current.Generated.Macrocycle == nil {
		return nil, ErrNothingToSave
	}

	req := current.BuildRequest("", s.now())
	var clientID *primitive.ObjectID
	if req.CreationMode == aigen.ModeClient {
		id, err := primitive.ObjectIDFromHex(req.ClientID)
		if err != nil {
			return nil, ErrNoClientChosen
		}
		clientID = &id
	}
	var start *time.Time
	if t, err := time.Parse("2006-01-02", req.ProgramDuration.StartDate); err == nil {
		start = &t
	}

	created, err := s.programs.ImportMacrocycle(ctx, coachID, clientID, current.Generated.Macrocycle, start)
	if err != nil {
		return created, err
	}

	_, err = s.Reset(ctx, coachID)
	return created, err
}

// Reset starts a new questionnaire and forgets the stored draft.
func (s *questionnaireService) Reset(ctx context.Context, coachID primitive.ObjectID) (questionnaire.State, error) {
	st, err := s.with(ctx, coachID, func(st *questionnaire.State) error {
		st.Reset(s.now())
		return nil
	})
	if err != nil {
		return st, err
	}
	if err := s.snapshots.Clear(ctx, coachID.Hex()); err != nil {
		log.Printf("WARN: Failed to clear questionnaire snapshot for coach %s: %v", coachID.Hex(), err)
	}
	return st, nil
}
