package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter читает ответы из терминала и печатает сообщения
type TerminalPrompter struct {
	reader *bufio.Reader
	writer io.Writer
	// fd терминала для чтения без эха; -1 — не терминал
	fd int
}

// NewTerminalPrompter создает prompter на stdin/stdout
func NewTerminalPrompter() *TerminalPrompter {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &TerminalPrompter{
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
		fd:     fd,
	}
}

// NewTerminalPrompterWithIO создает prompter с произвольным вводом-выводом (тесты)
func NewTerminalPrompterWithIO(reader io.Reader, writer io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		reader: bufio.NewReader(reader),
		writer: writer,
		fd:     -1,
	}
}

// Prompt печатает приглашение и ждет строку
func (tp *TerminalPrompter) Prompt(ctx context.Context, message string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("prompt canceled: %w", ctx.Err())
	default:
	}

	_, _ = fmt.Fprintf(tp.writer, "%s: ", message)
	input, err := tp.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}

	return strings.TrimSpace(input), nil
}

// PromptSecret читает строку без эха, если ввод — терминал
func (tp *TerminalPrompter) PromptSecret(ctx context.Context, message string) (string, error) {
	if tp.fd < 0 {
		return tp.Prompt(ctx, message)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("prompt canceled: %w", ctx.Err())
	default:
	}

	_, _ = fmt.Fprintf(tp.writer, "%s: ", message)
	secret, err := term.ReadPassword(tp.fd)
	_, _ = fmt.Fprintln(tp.writer)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

// Confirm задает вопрос да/нет; пустой ответ — да
func (tp *TerminalPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	answer, err := tp.Prompt(ctx, message+" [Д/н]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "", "д", "да", "y", "yes":
		return true, nil
	}
	return false, nil
}

func (tp *TerminalPrompter) ShowMessage(message string) {
	_, _ = fmt.Fprintln(tp.writer, message)
}

func (tp *TerminalPrompter) ShowError(message string) {
	_, _ = fmt.Fprintln(tp.writer, message)
}

func (tp *TerminalPrompter) ShowSuccess(message string) {
	_, _ = fmt.Fprintf(tp.writer, "✅ %s\n", message)
}
