package rate

func loginUserKey(username string) string {
	return "trl:u:" + username
}

func loginIPKey(ip string) string {
	return "trl:ip:" + ip
}

func refreshKey(sessionID string) string {
	return "trl:s:" + sessionID
}
