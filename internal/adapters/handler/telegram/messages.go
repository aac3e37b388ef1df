package telegram

const (
	helpAnswer = "This bot will help you create plannings. Use /new to create a " +
		"planning here, then publish it to groups or send it to individual friends.\n\n" +
		"You can control me by sending these commands:\n\n" +
		"/new - create a new planning\n" +
		"/plannings - list your existing plannings\n" +
		"/close - close one of your plannings, e.g. /close 2\n" +
		"/help - display this help"

	dontUnderstandAnswer = "Sorry I did not understand... try /help to see how you should talk to me."

	newAnswer = "You want to create a planning named \"%s\". Send me the first option " +
		"for participants to join. /cancel to abort creation."

	newUsageAnswer = "Sorry, to create a planning you have to give a title after the /new " +
		"command. Like this:\n\n/new My fancy planning title"

	newInProgressAnswer = "Sorry but you already have a planning creation in progress.\n" +
		"You can cancel the current creation using the /cancel command or finish it " +
		"using the /done command."

	optionAnswer = "Good. Feel free to add more options. /done to finish creating the " +
		"planning or /cancel to abort creation."

	doneAnswer = "👍 Planning created. You can now publish it to a group or send it to " +
		"your friends in a private message. To do this, tap the button below or start " +
		"your message in any other chat with @%s and select one of your plannings to send."

	doneNoOptionAnswer = "Sorry but you have to create at least one option for this planning."

	cancelAnswer = "Planning creation canceled."

	noCurrentPlanningAnswer = "Sorry but there is no planning currently in edition. To start " +
		"creating one use the /new command. Like this:\n\n/new My fancy planning title"

	planningsAnswer = "You have currently %d plannings:\n\n%s"

	noPlanningsAnswer = "You have no plannings yet. Use /new to create one."

	closeUsageAnswer = "Tell me which planning to close using its number in /plannings. " +
		"Like this:\n\n/close 1"

	closeNotOpenedAnswer = "This planning is not opened, it cannot be closed."

	closedAnswer = "Planning closed, no more votes will be accepted.\n\n%s"

	errorAnswer = "Sorry, something went wrong on my side. Please try again later."

	publishButton  = "Publish planning"
	withdrawButton = "Withdraw my votes"

	voteRegisteredNotice = "👍 Your availability has been registered"
	voteAlreadyNotice    = "You already chose this option."
	voteClosedNotice     = "This planning is not open for votes."
	optionGoneNotice     = "This option does not exist anymore."
	withdrawnNotice      = "Your votes have been withdrawn."
	nothingToWithdraw    = "You have not voted on this planning."
)
