// Package backup produces downloadable dumps of the database with
// mongodump.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

const (
	FormatGz  = "gz"
	FormatZip = "zip"
)

// Config locates mongodump and the database to dump.
type Config struct {
	URI string
	// Bin overrides the mongodump found on PATH.
	Bin string
}

// Runner executes a command and returns its standard error.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Archivo is a finished dump on disk. Close removes it.
type Archivo struct {
	Path string
	Name string
	Mime string
	dir  string
}

func (a *Archivo) Close() error {
	return os.RemoveAll(a.dir)
}

type Service struct {
	cfg      Config
	run      Runner
	lookPath func(string) (string, error)
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		run:      execRunner,
		lookPath: exec.LookPath,
		logger:   logger.With().Str("component", "backup").Logger(),
		now:      time.Now,
	}
}

func failure(msg string) *apperr.Error {
	return &apperr.Error{Err: apperr.ErrInternal, Message: msg, Code: "BACKUP_FAILED", HTTPStatus: http.StatusInternalServerError}
}

func (s *Service) binary() (string, error) {
	if s.cfg.Bin != "" {
		return s.cfg.Bin, nil
	}
	bin, err := s.lookPath("mongodump")
	if err != nil {
		return "", failure("mongodump no encontrado en el PATH del servidor")
	}
	return bin, nil
}

// dumpErr reports a failed run without leaking the connection string.
func (s *Service) dumpErr(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "Error desconocido ejecutando mongodump"
	}
	if s.cfg.URI != "" {
		msg = strings.ReplaceAll(msg, s.cfg.URI, "<uri>")
	}
	s.logger.Error().Str("stderr", msg).Msg("mongodump fallo")
	return failure("mongodump fallo: " + msg)
}

// Generar dumps the database in the requested format ("gz" by default).
// The caller must Close the returned archive.
func (s *Service) Generar(ctx context.Context, format string) (*Archivo, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatGz
	}
	if format != FormatGz && format != FormatZip {
		return nil, apperr.Validation("format debe ser 'gz' o 'zip'")
	}
	if s.cfg.URI == "" {
		return nil, failure("MONGO_URI no configurada")
	}
	bin, err := s.binary()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "sigepren_dump_")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	a := &Archivo{dir: dir, Name: "sigepren_backup_" + s.now().Format("20060102_150405") + "." + format}
	a.Path = filepath.Join(dir, a.Name)

	if err := s.dump(ctx, bin, format, a); err != nil {
		_ = a.Close()
		return nil, err
	}
	s.logger.Info().Str("archivo", a.Name).Msg("respaldo generado")
	return a, nil
}

func (s *Service) dump(ctx context.Context, bin, format string, a *Archivo) error {
	uri := "--uri=" + s.cfg.URI
	if format == FormatGz {
		a.Mime = "application/gzip"
		stderr, err := s.run(ctx, bin, uri, "--archive="+a.Path, "--gzip")
		if err != nil {
			return s.dumpErr(stderr, err)
		}
		if _, err := os.Stat(a.Path); err != nil {
			return s.dumpErr(stderr, nil)
		}
		return nil
	}

	a.Mime = "application/zip"
	out := filepath.Join(a.dir, "dump")
	if err := os.MkdirAll(out, 0o750); err != nil {
		return apperr.Internal(err)
	}
	if stderr, err := s.run(ctx, bin, uri, "--out="+out); err != nil {
		return s.dumpErr(stderr, err)
	}
	if err := zipDir(out, a.Path); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// zipDir writes every file under root into a deflated zip at dst, with
// paths relative to root.
func zipDir(root, dst string) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate})
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("zip dump: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}
