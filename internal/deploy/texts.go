package deploy

// User-facing texts of the deploy conversation.
const (
	TextMenu = "1Shot API is the easiest way to build Telegram bots with onchain functionality!\n\n" +
		"Use this simple bot as a starting point\n\n"
	TextDeployButton = "🚀 Deploy a Token"
	TextBackButton   = "Back"

	TextAskName        = "What do you want to name your token?"
	TextAskTicker      = "Great! What do you want the token symbol to be (users will see this next to their balance)?"
	TextAskDescription = "Please provide a description for your token:"
	TextAskImage       = "Great! Please upload an image for the token (e.g., logo)."
	TextAskPremint     = "Awesome! How many tokens should be minted to the admin address (must be an integer)?"

	TextInvalidImage   = "❌ Please upload a valid image."
	TextInvalidPremint = "❌ Invalid input! Please enter a positive integer for the premint amount:"

	TextDeploying       = "✅ Your token is being deployed! You will be notified once it's ready."
	TextNoWallet        = "❌ No escrow wallet is available to deploy your token. Please try again later."
	TextSubmitFailed    = "❌ We could not submit your token deployment. Please try again later."
	TextCancelled       = "bye 👋"
)

// Callback keys of the deploy inline buttons.
const (
	CallbackStart  = "start"
	CallbackDeploy = "deploytoken"
)
