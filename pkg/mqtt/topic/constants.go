package topic

// Separator splits topic levels.
const Separator = "/"
