package dialog

import (
	"fmt"
	"strings"
)

// Commands understood by the bot.
const (
	CmdStart         = "/start"
	CmdHelp          = "/help"
	CmdCategories    = "/categories"
	CmdAddExpense    = "/add_expense"
	CmdAddIncome     = "/add_income"
	CmdList          = "/list"
	CmdListByFilter  = "/list_by_filter"
	CmdDeleteRecord  = "/delete_record"
	CmdGetStatistics = "/get_statistics"
)

var commandList = []string{
	"List of categories: " + CmdCategories,
	"List of commands: " + CmdHelp,
	"Add expense: " + CmdAddExpense,
	"Add income: " + CmdAddIncome,
	"Show list of all records: " + CmdList,
	"Show filtered records: " + CmdListByFilter,
	"Delete record: " + CmdDeleteRecord,
	"Show statistics: " + CmdGetStatistics,
}

const rangeFormat = "YYYY-MM-DD - YYYY-MM-DD (example 2024-01-01 - 2024-01-31)"

const (
	msgDefault = "Sorry, I don't understand you. Please try again.\n" +
		"If you want to use a command - please use \"/\" before it."

	msgChooseCategory  = "Choose a category: "
	msgEnterCategory   = "Enter a category: "
	msgUnknownCategory = "I don`t know this category\n" +
		"If the one you need is not among those offered, select \"Other\"."
	msgEmptyCategory  = "The category cannot be empty. Please enter a category:"
	msgEnterTitle     = "Enter the name of this action:"
	msgAmountSpent    = "Now enter the amount you spent:"
	msgAmountIncome   = "Now enter the amount of your income:"
	msgWrongAmount    = "Wrong amount entered. Please try again."
	msgAmountPositive = "Amount should be greater than 0.00.\nPlease try again"
	msgEnterDate      = "Great! Now, please, write the date when the action was made in YYYY-MM-DD format.\n" +
		"If you don't need it, just write \"No\".\n" +
		"We will add today`s date."
	msgInvalidDate = "Please enter a valid date in YYYY-MM-DD format or \"No\"."
	msgFutureDate  = "The date cannot be in the future. Please try again."

	msgSelectFilter     = "Select the parameter to filter records:"
	msgFilterInvalid    = "Please select one of the suggested categories."
	msgSelectPeriod     = "Choose a time period to filter by:"
	msgPeriodInvalid    = "Please select one of the suggested filters."
	msgDeleteWhat       = "What you want to delete?"
	msgOptionInvalid    = "Please select one of the suggested options."
	msgNoRecordsFound   = "No records found"
	msgDeleteEnterIndex = "Enter the record number to delete:"
	msgWrongNumber      = "Entered wrong number. Please try again."

	msgStatsWhat       = "What statistics do you want to view?"
	msgProposedInvalid = "Choose one of the proposed options."
	msgStatsCriterion  = "Now choose what criteria to filter the data by?"
	msgStatsOptional   = "Want to view statistics for a specific period of time?\n" +
		"If so, enter the beginning and end of the period in the format:\n" +
		rangeFormat + "\n" +
		"If not - just enter \"No\", and I will show the statistic for all time."
	msgStatsRequired  = "Enter the beginning and end of the period in the format:\n" + rangeFormat
	msgStatsNoForDate = "You have entered an incorrect date. Please try again."
	msgInvalidRange   = "Invalid date. Please try again"
	msgStatsEmpty     = "No records found for the selected period."

	msgSaveFailed = "Sorry, I could not save your changes right now. Please try again."
	msgInternal   = "Sorry, something went wrong. Please try again later."
)

func welcomeText(name string) string {
	return fmt.Sprintf("Hello, %s.\nEnter the %s command", name, CmdStart)
}

func startText(name string) string {
	return fmt.Sprintf("Hi %s\n", name) +
		"I am Expense Tracker. I will help you monitor your expenses and income.\n" +
		"These are the commands that I understand and that will help us cooperate:\n" +
		strings.Join(commandList, "\n")
}

func helpText() string {
	return "These are commands that you can execute:\n\n" + strings.Join(commandList, "\n")
}

func unknownCommandText() string {
	return "I don't know this command.\nHere are the commands I can execute: \n\n" + strings.Join(commandList, "\n")
}

func categorySelectedText(label string) string {
	return label + " category selected.\n" + msgEnterTitle
}

func categoryEnteredText(category string) string {
	return category + " category entered."
}

func addedText(record string) string {
	return "Thank you! Record:\n" + record + "\nwas added!"
}

func deletedText(n int) string {
	return fmt.Sprintf("Your record number %d has been deleted.", n)
}

func scopeChosenText(scope string) string {
	return fmt.Sprintf("Great! You choose %s.", scope)
}
