package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/MyteScripts/gridbot/internal/db/models"
	adapter "github.com/MyteScripts/gridbot/internal/logger/adapter/fiber"

	"github.com/MyteScripts/gridbot/internal/logger"
)

// expectedLoggerJSONFormat implements loggers default json format.
type expectedLoggerJSONFormat struct {
	IP            net.IP    `json:"IP"`
	Status        int       `json:"status"`
	XPerformance  float32   `json:"X-Performance"`
	URI           string    `json:"URI"`
	Method        string    `json:"method"`
	Host          string    `json:"host"`
	XForwardedFor string    `json:"X-Forwarded-For"`
	UserAgent     string    `json:"User-Agent"`
	User          string    `json:"user"`
	Time          time.Time `json:"time"`
}

func accessLogConfig() logger.Log {
	return logger.Log{
		EnableAccessLogToConsole: true,
		Console:                  logger.Console{Enabled: true},
	}
}

func TestNew(t *testing.T) {
	type arguments struct {
		config     adapter.Config
		targetPath string
	}

	type want struct {
		err    error
		output *expectedLoggerJSONFormat
	}

	tests := []struct {
		name string
		args arguments
		want want
	}{
		{
			name: "empty no output at all",
			args: arguments{
				targetPath: "/leaderboard",
			},
			want: want{
				err:    nil,
				output: nil,
			},
		},
		{
			name: "get leaderboard log to console json",
			args: arguments{
				targetPath: "/leaderboard",
				config: adapter.Config{
					Next:              nil,
					Config:            accessLogConfig(),
					CacheControlError: "",
				},
			},
			want: want{
				err: nil,
				output: &expectedLoggerJSONFormat{
					IP:     net.ParseIP("0.0.0.0"),
					Status: 200,
					URI:    "/leaderboard",
					Method: fiber.MethodGet,
					Host:   "example.com",
				},
			},
		},
		{
			name: "get multiple slash log to console json",
			args: arguments{
				targetPath: "//missing",
				config: adapter.Config{
					Next:              nil,
					Config:            accessLogConfig(),
					CacheControlError: "",
				},
			},
			want: want{
				err: nil,
				output: &expectedLoggerJSONFormat{
					IP:     net.ParseIP("0.0.0.0"),
					Status: 404,
					URI:    "//missing",
					Method: fiber.MethodGet,
					Host:   "example.com",
				},
			},
		},
		{
			name: "get log with pagination params",
			args: arguments{
				targetPath: "/leaderboard?page=2&limit=25",
				config: adapter.Config{
					Next:              nil,
					Config:            accessLogConfig(),
					CacheControlError: "",
				},
			},
			want: want{
				err: nil,
				output: &expectedLoggerJSONFormat{
					IP:     net.ParseIP("0.0.0.0"),
					Status: 200,
					URI:    "/leaderboard?page=2&limit=25",
					Method: fiber.MethodGet,
					Host:   "example.com",
				},
			},
		},
		{
			name: "session user is logged",
			args: arguments{
				targetPath: "/admin",
				config: adapter.Config{
					Next:              nil,
					Config:            accessLogConfig(),
					CacheControlError: "",
				},
			},
			want: want{
				err: nil,
				output: &expectedLoggerJSONFormat{
					IP:     net.ParseIP("0.0.0.0"),
					Status: 200,
					URI:    "/admin",
					Method: fiber.MethodGet,
					Host:   "example.com",
					User:   "grid",
				},
			},
		},
		{
			name: "skip listed uris are not logged",
			args: arguments{
				targetPath: "/checkalive",
				config: adapter.Config{
					Next:              nil,
					Config:            accessLogConfig(),
					CacheControlError: "",
					SkipURIs:          []string{"/checkalive", "/metrics"},
				},
			},
			want: want{
				err:    nil,
				output: nil,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// use test helper func for testing this config
			output, err := testMiddlewareHelper(t, tt.args.targetPath, tt.args.config)

			// is error as expected
			assert.Equal(t, tt.want.err, err)

			if tt.want.output == nil && output != "" {
				t.Errorf("expected no output, but got output %s", output)
			}

			if tt.want.output != nil && output == "" {
				t.Error("expected output but got no output")
			}

			if tt.want.output != nil && output != "" {
				var decodedOutput expectedLoggerJSONFormat
				err = json.Unmarshal([]byte(output), &decodedOutput)
				if err != nil {
					t.Error(err)
					return
				}

				assert.Equal(t, tt.want.output.Host, decodedOutput.Host)
				assert.Equal(t, tt.want.output.Method, decodedOutput.Method)
				assert.Equal(t, tt.want.output.Status, decodedOutput.Status)
				assert.Equal(t, tt.want.output.IP, decodedOutput.IP)
				assert.Equal(t, tt.want.output.URI, decodedOutput.URI)
				assert.Equal(t, tt.want.output.User, decodedOutput.User)
			}
		})
	}
}

func testMiddlewareHelper(t *testing.T, targetPath string, adapterConfig adapter.Config) (string, error) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	// capture stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	// create new fiber app
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		Immutable:     true,
	})

	// use logger
	app.Use(adapter.New(adapterConfig))

	app.Get("/leaderboard", func(ctx *fiber.Ctx) error {
		return ctx.SendString("hello test")
	})

	// mimics the auth middleware storing the session user
	app.Get("/admin", func(ctx *fiber.Ctx) error {
		ctx.Locals("CurrentUser", models.User{Username: "grid"})
		return ctx.SendString("hello admin")
	})

	app.Get("/checkalive", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, targetPath, nil), 100000)
	if err != nil {
		_ = w.Close()
		return "", err
	}

	outC := make(chan string)
	// copy the output in a separate goroutine so printing can't block indefinitely
	go func() {
		var buf bytes.Buffer
		_, err = io.Copy(&buf, r)
		if err != nil {
			return
		}

		outC <- buf.String()
	}()

	// back to normal state
	_ = w.Close()
	os.Stdout = stdout // restoring the real stdout
	os.Stderr = stderr // restoring the real stderr
	out := <-outC

	return out, err
}
