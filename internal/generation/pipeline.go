package generation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/storage"
	"ai-image-editor-backend/internal/supabase"
)

const (
	StageValidate         = "validate"
	StageUploadInput      = "upload_input"
	StageLoadInput        = "load_input"
	StageResolveInputURL  = "resolve_input_url"
	StageBuildRequest     = "build_request"
	StageProvider         = "provider"
	StageResolveOutput    = "resolve_output"
	StageGuardEcho        = "guard_echo"
	StageDownloadOutput   = "download_output"
	StageGuardIdentical   = "guard_identical"
	StageUploadOutput     = "upload_output"
	StageResolveOutputURL = "resolve_output_url"
	StagePersist          = "persist"
)

const (
	MsgImageRequired      = "Image file is required."
	MsgPromptRequired     = "Prompt is required."
	MsgUploadInputFailed  = "Failed to upload input image."
	MsgInputURLFailed     = "Failed to retrieve input image URL."
	MsgLoadInputFailed    = "Failed to retrieve input image."
	MsgDownloadFailed     = "Failed to download generated image."
	MsgUploadOutputFailed = "Failed to upload generated image."
	MsgOutputURLFailed    = "Failed to retrieve generated image URL."
	MsgSaveProjectFailed  = "Failed to save project record."
	MsgPaymentRequired    = "Payment is required before generating this project."
	MsgAlreadyGenerated   = "This project has already been generated."
)

// ProjectStore persists the outcome of a run.
type ProjectStore interface {
	InsertProject(ctx context.Context, p models.NewProject) (*models.Project, error)
	// CompleteProject sets the output of a pending project. It returns
	// supabase.ErrProjectAlreadyCompleted when an output is already recorded.
	CompleteProject(ctx context.Context, projectID uuid.UUID, outputURL, outputPath string) error
}

type Options struct {
	InputBucket  string
	InputFolder  string
	OutputBucket string
	OutputFolder string
}

type Deps struct {
	Storage    storage.Backend
	Keyer      *storage.Keyer
	Access     *storage.AccessResolver
	Builder    *RequestBuilder
	Provider   Provider
	Downloader *Downloader
	Projects   ProjectStore
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Pipeline stores the input image, runs the provider, rejects degenerate
// results, stores the output and records the project. Stages run in order;
// the first failure ends the run and nothing already written is rolled back.
type Pipeline struct {
	opts       Options
	storage    storage.Backend
	keyer      *storage.Keyer
	access     *storage.AccessResolver
	builder    *RequestBuilder
	provider   Provider
	downloader *Downloader
	projects   ProjectStore
	metrics    *Metrics
	logger     *slog.Logger
}

func NewPipeline(opts Options, deps Deps) *Pipeline {
	if deps.Keyer == nil {
		deps.Keyer = storage.NewKeyer()
	}
	if deps.Builder == nil {
		deps.Builder = &RequestBuilder{}
	}
	if deps.Downloader == nil {
		deps.Downloader = NewDownloader(nil, 0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		opts:       opts,
		storage:    deps.Storage,
		keyer:      deps.Keyer,
		access:     deps.Access,
		builder:    deps.Builder,
		provider:   deps.Provider,
		downloader: deps.Downloader,
		projects:   deps.Projects,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With("component", "generation_pipeline"),
	}
}

type Input struct {
	UserID      uuid.UUID
	Image       []byte
	Filename    string
	ContentType string
	Prompt      string
}

type StoredInput struct {
	Path string
	URL  string
}

type Result struct {
	ProjectID  uuid.UUID
	OutputURL  string
	OutputPath string
	InputURL   string
	InputPath  string
}

// Generate runs a full generation and inserts a completed project.
func (p *Pipeline) Generate(ctx context.Context, in Input) (res *Result, err error) {
	start := time.Now()
	defer func() { p.finish(start, err) }()

	stored, err := p.StoreInput(ctx, in)
	if err != nil {
		return nil, err
	}

	out, err := p.transform(ctx, in.Prompt, stored.URL, in.Image)
	if err != nil {
		return nil, err
	}

	var project *models.Project
	err = p.stage(StagePersist, func() error {
		var insertErr error
		project, insertErr = p.projects.InsertProject(ctx, models.NewProject{
			UserID:          in.UserID,
			Prompt:          strings.TrimSpace(in.Prompt),
			InputImageURL:   stored.URL,
			InputImagePath:  stored.Path,
			OutputImageURL:  out.URL,
			OutputImagePath: out.Path,
			Status:          models.ProjectStatusCompleted,
			PaymentStatus:   models.PaymentStatusPending,
		})
		if insertErr != nil {
			return apperr.New(apperr.Persistence, StagePersist, MsgSaveProjectFailed, insertErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("generation completed",
		"project_id", project.ID,
		"user_id", in.UserID,
		"provider", p.provider.Name(),
		"duration", time.Since(start))

	return &Result{
		ProjectID:  project.ID,
		OutputURL:  out.URL,
		OutputPath: out.Path,
		InputURL:   stored.URL,
		InputPath:  stored.Path,
	}, nil
}

// GenerateForProject runs the provider for a paid, still pending project
// whose input is already stored, then marks it completed.
func (p *Pipeline) GenerateForProject(ctx context.Context, project *models.Project) (res *Result, err error) {
	start := time.Now()
	defer func() { p.finish(start, err) }()

	err = p.stage(StageValidate, func() error {
		if !project.IsPaid() {
			return apperr.New(apperr.PaymentRequired, StageValidate, MsgPaymentRequired, nil)
		}
		if project.IsCompleted() {
			return apperr.New(apperr.Conflict, StageValidate, MsgAlreadyGenerated, nil)
		}
		if strings.TrimSpace(project.Prompt) == "" {
			return apperr.New(apperr.InvalidInput, StageValidate, MsgPromptRequired, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inputPath := project.InputImagePath.String
	if !project.InputImagePath.Valid || inputPath == "" {
		inputPath = storage.ExtractPath(project.InputImageURL, p.opts.InputBucket)
	}

	var inputData []byte
	err = p.stage(StageLoadInput, func() error {
		if inputPath == "" {
			return apperr.New(apperr.StorageRead, StageLoadInput, MsgLoadInputFailed, errors.New("input path unknown"))
		}
		var loadErr error
		inputData, loadErr = p.storage.Download(ctx, p.opts.InputBucket, inputPath)
		if loadErr != nil {
			return apperr.New(apperr.StorageRead, StageLoadInput, MsgLoadInputFailed, loadErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inputURL, err := p.resolveURL(ctx, StageResolveInputURL, p.opts.InputBucket, inputPath, MsgInputURLFailed)
	if err != nil {
		return nil, err
	}

	out, err := p.transform(ctx, project.Prompt, inputURL, inputData)
	if err != nil {
		return nil, err
	}

	err = p.stage(StagePersist, func() error {
		if updateErr := p.projects.CompleteProject(ctx, project.ID, out.URL, out.Path); updateErr != nil {
			if errors.Is(updateErr, supabase.ErrProjectAlreadyCompleted) {
				return apperr.New(apperr.Conflict, StagePersist, MsgAlreadyGenerated, updateErr)
			}
			return apperr.New(apperr.Persistence, StagePersist, MsgSaveProjectFailed, updateErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("project generation completed",
		"project_id", project.ID,
		"provider", p.provider.Name(),
		"duration", time.Since(start))

	return &Result{
		ProjectID:  project.ID,
		OutputURL:  out.URL,
		OutputPath: out.Path,
		InputURL:   inputURL,
		InputPath:  inputPath,
	}, nil
}

// StoreInput validates the request, uploads the input image under a fresh
// key and resolves a URL for it.
func (p *Pipeline) StoreInput(ctx context.Context, in Input) (*StoredInput, error) {
	err := p.stage(StageValidate, func() error {
		if len(in.Image) == 0 {
			return apperr.New(apperr.InvalidInput, StageValidate, MsgImageRequired, nil)
		}
		if strings.TrimSpace(in.Prompt) == "" {
			return apperr.New(apperr.InvalidInput, StageValidate, MsgPromptRequired, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inputPath := p.keyer.MakeKey(p.opts.InputFolder, in.Filename)
	contentType := in.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(in.Image)
	}

	err = p.stage(StageUploadInput, func() error {
		if uploadErr := p.storage.Upload(ctx, p.opts.InputBucket, inputPath, in.Image, contentType); uploadErr != nil {
			return apperr.New(apperr.StorageWrite, StageUploadInput, MsgUploadInputFailed, uploadErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inputURL, err := p.resolveURL(ctx, StageResolveInputURL, p.opts.InputBucket, inputPath, MsgInputURLFailed)
	if err != nil {
		return nil, err
	}
	return &StoredInput{Path: inputPath, URL: inputURL}, nil
}

type storedOutput struct {
	URL  string
	Path string
}

func (p *Pipeline) transform(ctx context.Context, prompt, inputURL string, inputData []byte) (*storedOutput, error) {
	var input map[string]any
	err := p.stage(StageBuildRequest, func() error {
		var buildErr error
		input, buildErr = p.builder.Build(prompt, inputURL)
		return buildErr
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("invoking provider", "provider", p.provider.Name(), "image_url", inputURL)

	var raw any
	err = p.stage(StageProvider, func() error {
		var runErr error
		raw, runErr = p.provider.Generate(ctx, Request{
			Prompt:   strings.TrimSpace(prompt),
			ImageURL: inputURL,
			Image:    inputData,
			Input:    input,
		})
		if runErr != nil {
			return apperr.New(apperr.ProviderError, StageProvider, MsgGenerateFailed, runErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var resolved *Resolved
	err = p.stage(StageResolveOutput, func() error {
		var resolveErr error
		resolved, resolveErr = ResolveOutput(raw)
		if resolveErr != nil {
			return apperr.New(apperr.UnresolvedOutput, StageResolveOutput, MsgGenerateFailed, resolveErr)
		}
		if resolved == nil {
			return apperr.New(apperr.UnresolvedOutput, StageResolveOutput, MsgGenerateFailed, errors.New("unexpected provider response shape"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.stage(StageGuardEcho, func() error { return CheckEcho(resolved, inputURL) }); err != nil {
		return nil, err
	}

	outputData, outputType := resolved.Data, resolved.ContentType
	if resolved.Kind == OutputURL {
		err = p.stage(StageDownloadOutput, func() error {
			data, contentType, fetchErr := p.downloader.Fetch(ctx, resolved.URL)
			if fetchErr != nil {
				return apperr.New(apperr.Download, StageDownloadOutput, MsgDownloadFailed, fetchErr)
			}
			outputData, outputType = data, contentType
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if outputType == "" {
		outputType = defaultOutputContentType
	}

	err = p.stage(StageGuardIdentical, func() error {
		return CheckDegenerate(resolved, inputURL, ContentHash(inputData), ContentHash(outputData))
	})
	if err != nil {
		return nil, err
	}

	outputPath := p.keyer.MakeKey(p.opts.OutputFolder, resolved.URL)
	err = p.stage(StageUploadOutput, func() error {
		if uploadErr := p.storage.Upload(ctx, p.opts.OutputBucket, outputPath, outputData, outputType); uploadErr != nil {
			return apperr.New(apperr.StorageWrite, StageUploadOutput, MsgUploadOutputFailed, uploadErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outputURL, err := p.resolveURL(ctx, StageResolveOutputURL, p.opts.OutputBucket, outputPath, MsgOutputURLFailed)
	if err != nil {
		return nil, err
	}
	return &storedOutput{URL: outputURL, Path: outputPath}, nil
}

func (p *Pipeline) resolveURL(ctx context.Context, stage, bucket, path, message string) (string, error) {
	var url string
	err := p.stage(stage, func() error {
		access, resolveErr := p.access.ResolveURL(ctx, bucket, path)
		if resolveErr != nil {
			kind := apperr.StorageRead
			if errors.Is(resolveErr, storage.ErrSignedURLUnavailable) {
				kind = apperr.SignedURLUnavailable
			}
			return apperr.New(kind, stage, message, resolveErr)
		}
		url = access.URL
		return nil
	})
	return url, err
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.ObserveStage(name, err, time.Since(start))
	if err != nil {
		p.metrics.IncStageFailure(name, string(apperr.KindOf(err)))
	}
	return err
}

func (p *Pipeline) finish(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	p.metrics.IncRun(p.provider.Name(), outcome)
	p.logger.Debug("generation run finished", "outcome", outcome, "duration", time.Since(start))
}
