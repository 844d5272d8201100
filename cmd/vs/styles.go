package main

import "github.com/charmbracelet/lipgloss"

// Colors used in terminal output.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
)

// TitleStyle for post titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// SectionHeader for analysis section labels.
var SectionHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginTop(1)

// ProviderBadge marks which provider answered.
var ProviderBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// DemoBadge marks synthetic posts.
var DemoBadge = lipgloss.NewStyle().
	Foreground(colorWarn).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// MetaText for secondary details such as counts and ages.
var MetaText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// MutedText for placeholders and hints.
var MutedText = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true)

// OKText for positive status.
var OKText = lipgloss.NewStyle().
	Foreground(colorSuccess)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true)

// ResultCard frames one analysis.
var ResultCard = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(0, 1).
	MarginBottom(1)

// WarnText for warnings in the event viewer.
var WarnText = lipgloss.NewStyle().
	Foreground(colorWarn)
