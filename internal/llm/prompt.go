package llm

// classifyPrompt instructs the model to judge one monitored group. The
// hierarchy mirrors the deterministic classifier so model output and local
// output agree; the model only adds the human-readable summary.
const classifyPrompt = `You are an expert analyst of task execution consoles.
Analyze the following task executions for the process group "%s".

Apply this strict status hierarchy, in order:
1. If ANY task shows Failed, Error, Aborted, Skipped, Never started or Reset, the group status is "Failed".
2. Otherwise, if ANY task shows Started, Triggered, Retrying, Aborting, Running or Executing, the group status is "Running".
3. Otherwise, if ANY task shows Queued or Waiting, the group status is "Pending".
4. Only if ALL tasks show Success, the group status is "Success".

Tasks:
%s

Respond with ONLY a JSON object, no prose and no markdown fences, shaped as:
{"status": "<Success|Running|Failed|Pending>", "summary": "<one sentence explaining the verdict>", "failed_tasks": ["<names of failed tasks>"], "running_tasks": ["<names of running tasks>"], "task_count": <number of tasks>}`

// summaryPrompt asks for the executive summary of the combined report.
const summaryPrompt = `You are writing the executive summary for an operations monitoring report.
Given the combined status report below, write ONE short paragraph (no markdown)
that states the overall health, names any failed process groups first, then any
still-running groups, and closes with the success count. Be factual and terse.

Report:
%s`
