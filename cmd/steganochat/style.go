package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func printOK(format string, args ...any) {
	fmt.Println(okStyle.Render(fmt.Sprintf(format, args...)))
}

func printErr(format string, args ...any) {
	fmt.Println(errStyle.Render(fmt.Sprintf(format, args...)))
}
