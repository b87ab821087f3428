package agent

import (
	"fmt"

	"github.com/etnz/allocation/tools"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: instruction(`
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is here to decide how to split a portfolio between stocks and bonds, to record
			that allocation, and to follow the news and prices of the stocks in it.
			Before changing the allocation, restate the change and seek for a clear user approval.

			Devise a plan of questions to ask to each experts and come up with the best response to the user's request.
			Answer in markdown.
		`),
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns the expert grounded on Google Search.
func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		Very well aware of all the financial products and institutions,
		about the latest news about the different funds or companies.
		Ask the Trader whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: instruction(`
			You are a expert in Trading, you can search and find about anything related to
			financial institutions, companies, markets, funds etc. You Leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latests news too, and you know how to relate them to the user's request.
			`),
		},
	}
}

// NewAdvisor returns the expert in charge of the user's allocation. It calls
// the portfolio tools on behalf of userID.
func NewAdvisor(userID string, registry []tools.Tool, log logrus.FieldLogger) *Expert {
	lib := make([]*ToolFunction, 0, len(registry))
	for _, t := range registry {
		lib = append(lib, &ToolFunction{Tool: t})
	}
	return &Expert{
		Name: "Advisor",
		Description: `This is the Advisor. It is in charge of the user's portfolio allocation: the percentage
		of the portfolio given to each stock and bond. It can record changes, report on the recent
		performance, fetch prices, news and symbols, and give basic recommendations.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: instruction(fmt.Sprintf(`
			You are an advisor in charge of the user's portfolio allocation.
			The user_id of the user is %q, use it for every tool that requires one.
			Allocations are percentages of the whole portfolio, stocks and bonds together should total about 100%%.
			You are part of a team of experts, yours is everything about the user's allocation. They might ask
			you questions about it, pardon their approximative language and figure out what they meant.
			`, userID)),
		},
		Library: NewLibrary(lib),
		Log:     log,
	}
}
