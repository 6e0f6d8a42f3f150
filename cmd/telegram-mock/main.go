// Command telegram-mock is a local stand-in for the Telegram Bot API. It
// accepts sendPhoto and sendMessage calls for any token and logs them.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
)

type botResponse struct {
	OK          bool        `json:"ok"`
	Result      interface{} `json:"result,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
}

func main() {
	var (
		port   = flag.String("port", "9098", "port to listen on")
		chatID = flag.String("chat", "", "only accept this chat id (empty accepts any)")
	)
	flag.Parse()

	var messageID int64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// paths look like /bot<token>/<method>
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "bot") || r.Method != http.MethodPost {
			writeJSON(w, http.StatusNotFound, botResponse{ErrorCode: 404, Description: "Not Found"})
			return
		}
		method := parts[1]

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, botResponse{ErrorCode: 400, Description: "Bad Request: invalid JSON"})
			return
		}
		if *chatID != "" && payload["chat_id"] != *chatID {
			writeJSON(w, http.StatusBadRequest, botResponse{ErrorCode: 400, Description: "Bad Request: chat not found"})
			return
		}

		switch method {
		case "sendPhoto", "sendMessage":
			id := atomic.AddInt64(&messageID, 1)
			log.Printf("%s #%d: %v", method, id, payload)
			writeJSON(w, http.StatusOK, botResponse{OK: true, Result: map[string]int64{"message_id": id}})
		default:
			writeJSON(w, http.StatusNotFound, botResponse{ErrorCode: 404, Description: "Not Found: method not found"})
		}
	})

	addr := ":" + *port
	log.Printf("mock telegram listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body botResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
