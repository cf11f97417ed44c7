package config

import "github.com/KevinLopezPastor/qmc-agent/pkg/partition"

// Monitored groups on the QMC console. Tasks are assigned to groups by tag.
var defaultQMCGroups = []partition.Group{
	{Alias: "Hitos", Pattern: "FE_HITOS_DIARIO", Match: partition.MatchTag},
	{Alias: "Cobranzas", Pattern: "FE_COBRANZAS_DIARIA", Match: partition.MatchTag},
	{Alias: "Pasivos", Pattern: "FE_PASIVOS", Match: partition.MatchTag},
	{Alias: "Reporte de Producción", Pattern: "FE_PRODUCCION", Match: partition.MatchTag},
	{Alias: "Calidad de Cartera", Pattern: "FE_CALIDADCARTERA_DIARIO", Match: partition.MatchTag},
}

// Monitored groups on the NPrinting console. Tasks are assigned to groups by
// name prefix, since NPrinting has no tags.
var defaultNPrintingGroups = []partition.Group{
	{Alias: "Hitos", Pattern: "h.", Match: partition.MatchPrefix},
	{Alias: "Calidad de Cartera", Pattern: "q1.", Match: partition.MatchPrefix},
	{Alias: "Reporte de Producción", Pattern: "k.", Match: partition.MatchPrefix},
	{Alias: "Cobranzas", Pattern: "x.", Match: partition.MatchPrefix},
}

// CSS selectors handed to the worker scripts. Kept here so selector drift is
// a config change rather than a script change.
var qmcSelectors = map[string]string{
	"username_input": "input[name='username']",
	"password_input": "input[name='password']",
	"login_button":   "button[type='submit']",
	"task_table":     ".qv-object-table",
	"task_row":       "div[role='row']",
	"pagination":     "button.next-page",
}

var nprintingSelectors = map[string]string{
	"email_input":    "input[name='email']",
	"password_input": "input[name='password']",
	"login_button":   "button[type='submit']",
	"task_table":     "table.executions",
	"task_row":       "tbody tr",
	"pagination":     "a.pagination-next",
}
