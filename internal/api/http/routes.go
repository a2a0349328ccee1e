package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/flight-delay-prediction/internal/prediction"
)

const requestIDKey = "requestid"

// Predictor runs a single prediction.
type Predictor interface {
	Predict(ctx context.Context, req prediction.Request) (prediction.Result, error)
}

// ModelStatus reports whether a model is loaded.
type ModelStatus interface {
	Loaded() bool
	LoadedAt() time.Time
}

// Options configures the Fiber app.
type Options struct {
	Service      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

// NewApp builds the Fiber app with the central error handler and global
// middleware.
func NewApp(opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               opts.Service,
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("request failed",
					"request_id", c.Locals(requestIDKey),
					"method", c.Method(),
					"path", c.Path(),
					"error", err,
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(recover.New())

	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service string, predictor Predictor, models ModelStatus) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if !models.Loaded() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(healthResponse{
				Status:  "DOWN",
				Service: service,
			})
		}
		loadedAt := models.LoadedAt().UTC()
		return c.JSON(healthResponse{
			Status:      "UP",
			Service:     service,
			ModelLoaded: true,
			LoadedAt:    &loadedAt,
		})
	})

	app.Post("/predict", func(c *fiber.Ctx) error {
		if !models.Loaded() {
			return fiber.NewError(fiber.StatusServiceUnavailable, prediction.ErrModelUnavailable.Error())
		}

		req, err := prediction.ParseRequest(c.Body())
		if err != nil {
			return toHTTPError(err)
		}

		res, err := predictor.Predict(c.UserContext(), req)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(newPredictResponse(res))
	})
}

type healthResponse struct {
	Status      string     `json:"status"`
	Service     string     `json:"service"`
	ModelLoaded bool       `json:"model_loaded"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
}

type weatherContext struct {
	Main         string `json:"main"`
	CategoryUsed string `json:"category_used"`
	Source       string `json:"source"`
	Reason       string `json:"reason"`
}

type predictResponse struct {
	Status           string         `json:"status"`
	Prediction       int            `json:"prediction"`
	Label            string         `json:"label"`
	ProbabilityDelay float64        `json:"probability_delay"`
	WeatherContext   weatherContext `json:"weather_context"`
}

func newPredictResponse(res prediction.Result) predictResponse {
	return predictResponse{
		Status:           "success",
		Prediction:       res.Class,
		Label:            res.Label.Display(),
		ProbabilityDelay: res.ProbabilityOfDelay,
		WeatherContext: weatherContext{
			Main:         res.Weather.Main(),
			CategoryUsed: string(res.Weather.Category),
			Source:       res.Weather.Source,
			Reason:       res.Weather.Reason,
		},
	}
}

func toHTTPError(err error) error {
	var verr *prediction.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, prediction.ErrModelUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
