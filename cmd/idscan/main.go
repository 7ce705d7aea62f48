package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"idscan/internal/models"
	"idscan/internal/scanner"
)

// setFlags collects repeated -set field=value corrections.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		server  = flag.String("server", "http://localhost:8080", "extraction server base URL")
		file    = flag.String("file", "", "image or PDF to scan (required)")
		preview = flag.String("preview", "", "write the PDF first-page preview PNG to this path")
		timeout = flag.Duration("timeout", 60*time.Second, "request timeout")
		edits   setFlags
	)
	flag.Var(&edits, "set", "manual correction field=value (repeatable)")
	flag.Parse()

	if *file == "" {
		printError("Error: -file is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(*file)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctrl := scanner.NewController(
		scanner.NewClient(*server, &http.Client{Timeout: *timeout}),
		scanner.Options{Renderer: scanner.NewPdftoppmRenderer("", 0), Logger: logger},
	)
	defer ctrl.Close()

	ctx := context.Background()
	doc := scanner.Document{Name: filepath.Base(*file), MIMEType: detectType(*file, data), Data: data}
	if err := ctrl.SelectFile(ctx, doc); err != nil {
		printError("Error: %s\n", ctrl.State().Error)
		os.Exit(1)
	}
	if *preview != "" && doc.IsPDF() {
		if p := ctrl.State().Preview; p != nil {
			if err := os.WriteFile(*preview, p, 0o644); err != nil {
				printError("Warning: write preview: %v\n", err)
			}
		}
	}

	state, err := ctrl.Process(ctx)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if state.Error != "" {
		printError("%s\n", state.Error)
	}

	for _, e := range edits {
		field, value, ok := strings.Cut(e, "=")
		if !ok {
			printError("Warning: ignoring -set %q, want field=value\n", e)
			continue
		}
		if err := ctrl.EditField(strings.TrimSpace(field), value); err != nil {
			printError("Warning: %v\n", err)
		}
	}

	printResult(ctrl.State())
	if q, ok := ctrl.Quality(); ok {
		if s := q.Summary(); s != "" {
			fmt.Println()
			fmt.Println(s)
		}
	}
}

func detectType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	t, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return t
}

func printResult(s scanner.State) {
	r := s.Result
	fmt.Printf("Phase: %s\n", s.Phase)
	for _, name := range models.AllFields {
		f, _ := r.Fields.Get(name)
		value := models.Deref(f.Value)
		if value == "" {
			value = "-"
		}
		fmt.Printf("%-12s %-40s %3.0f%%\n", name, value, f.Confidence*100)
	}
	fmt.Printf("Overall confidence: %.0f%%\n", r.Confidence*100)
	if r.Note != "" {
		fmt.Printf("Note: %s\n", r.Note)
	}
}
