package bot

const (
	msgWelcome = "Hi! Send me text or a photo with a caption and I will add it to today's log. Type /help to see the commands."

	msgHelp = `Commands:
/list - today's messages
/delete <n> - remove message number n
/send - AI summary of today
/summary - show the stored AI summary
/get - export all your days to Excel
/usage - your quota for today`

	msgAdminHelp = `
/setlimit <user> <n> - set a user's daily limit`

	msgLogged         = "Saved to today's log."
	msgPhotoSaved     = "Photo saved."
	msgPhotoNoCaption = "Photo saved. Did you forget the description?"
	msgNoMessages     = "No messages logged today. Send text or photos first."
	msgNoRecords      = "No records to export yet."
	msgNoSummary      = "No AI summary for today yet. Run /send to generate one."
	msgQuotaExceeded  = "You have used all your %s requests for today. Try again tomorrow."
	msgMissingKey     = "Configuration error: the AI API key is missing. Contact the administrator."
	msgUpstream       = "The AI service failed to answer. Please try again later."
	msgUnexpected     = "An unexpected error occurred: %s"
	msgDeleteUsage    = "Usage: /delete <n>, where n is the number shown by /list."
	msgDeleted        = "Message %d deleted."
	msgDeleteMissing  = "There is no message %d today."
	msgSetLimitUsage  = "Usage: /setlimit <user> <n>, with n at least 1."
	msgLimitSet       = "Daily limit of %s set to %d."
	msgLimitFailed    = "Could not store the new limit."
	msgNotAdmin       = "This command is for administrators."
	msgUnknownCommand = "Unknown command /%s. Type /help for the list."
	msgReportReady    = "Your report is ready: %s"
	msgPasswordPrompt = "This bot is private. Send the access password to continue."
	msgPasswordOK     = "Access granted. " + msgWelcome
	msgPasswordWrong  = "Wrong password. %d attempts left."
	msgBlocked        = "Too many failed attempts. Access is blocked."
	msgSlowDown       = "You are sending messages too fast. Wait a minute and try again."
	msgTryLater       = "The bot is temporarily unavailable. Please try again later."
	msgPhotosDisabled = "Photo storage is not enabled on this bot."
	msgPhotoTooLarge  = "The photo is too large."
	msgPhotoRefused   = "I can only fetch photos shared through the upload service."
	msgLockTimeout    = "Another message for today is still being saved. Please retry."
	msgTodayHeader    = "Today's messages:"
	msgUsageLine      = "%s: %d of %d used today"
	msgUsageResetHint = "\nLimits reset at midnight."
)
