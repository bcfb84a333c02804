package copilot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Prompt templates. The wording is part of the service contract with the
// model: the classifier depends on the bare-label instruction and the
// controller depends on the raw-JSON instruction, so edits here change
// observable behavior.
const (
	intentPrompt = "Classify the user's intent into one of these categories: " +
		"'greeting' (saying hi), 'modify' (changing numbers/sliders), " +
		"'explain' (asking why or how), 'scenario' (what-if analysis), " +
		"or 'generate' (creating reports). Return ONLY the category name."

	greetingPrompt = "You are a helpful Collections ROI Copilot. Greet the user " +
		"and briefly mention you can see their current calculator state."

	analystPromptFmt = "You are a Collections Data Analyst. Use the following " +
		"real-time calculator state to answer: %s. " +
		"Focus on metrics like Recovery Rate, Profit, and Peak Utilization. " +
		"If peak utilization is > 100%%, explain that they are missing revenue " +
		"due to capacity bottlenecks."

	controllerPromptFmt = "You are a system controller. The user wants to change " +
		"a value in the calculator. Current state: %s. " +
		"The valid field names are: %s. " +
		"Convert relative changes into absolute values. " +
		"Output ONLY a raw JSON object of the fields to change. " +
		"Example: {\"agentCount\": 45}. Do not include any text, only the JSON."

	scenarioPromptFmt = "Analyze this 'what-if' scenario using the current data: %s. " +
		"Compare the 'Current' vs 'Proposed' impact on Profit and ROI."
)

// Texts appended by the controller branch.
const (
	controllerConfirmation = "I've updated those values in the calculator for you."
	controllerApology      = "I understood you wanted to make a change, but I couldn't format the update correctly."
)

// stateJSON serializes the calculator state for prompt embedding.
// json.Marshal writes map keys in sorted order, so the serialization is
// deterministic for a given state.
func stateJSON(calc CalculatorState) string {
	if calc == nil {
		calc = CalculatorState{}
	}
	data, err := json.Marshal(calc)
	if err != nil {
		// State decoded from a JSON request body always marshals back.
		return "{}"
	}
	return string(data)
}

// fieldNames returns the calculator field names in sorted order.
func fieldNames(calc CalculatorState) []string {
	names := make([]string, 0, len(calc))
	for name := range calc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func analystPrompt(calc CalculatorState) string {
	return fmt.Sprintf(analystPromptFmt, stateJSON(calc))
}

func controllerPrompt(calc CalculatorState) string {
	return fmt.Sprintf(controllerPromptFmt, stateJSON(calc), strings.Join(fieldNames(calc), ", "))
}

func scenarioPrompt(calc CalculatorState) string {
	return fmt.Sprintf(scenarioPromptFmt, stateJSON(calc))
}
