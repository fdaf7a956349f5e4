package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"riftbound/internal/deck"
	"riftbound/internal/grpcserver"
)

type authResponse struct {
	Token string `json:"token"`
}

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Register, log in and out"}

	var email, password, username string

	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(c *cobra.Command, _ []string) error {
			var resp authResponse
			payload := map[string]string{"email": email, "password": password}
			if err := a.do(c.Context(), http.MethodPost, "/auth/login", false, payload, &resp); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.saveToken(resp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), "logged in")
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "email address")
	login.Flags().StringVar(&password, "password", "", "password")
	_ = login.MarkFlagRequired("email")
	_ = login.MarkFlagRequired("password")

	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(c *cobra.Command, _ []string) error {
			var resp authResponse
			payload := map[string]string{"username": username, "email": email, "password": password}
			if err := a.do(c.Context(), http.MethodPost, "/auth/register", false, payload, &resp); err != nil {
				return fmt.Errorf("register failed: %w", err)
			}
			if err := a.saveToken(resp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), "registered and logged in")
			return nil
		},
	}
	register.Flags().StringVar(&username, "username", "", "username")
	register.Flags().StringVar(&email, "email", "", "email address")
	register.Flags().StringVar(&password, "password", "", "password")
	_ = register.MarkFlagRequired("username")
	_ = register.MarkFlagRequired("email")
	_ = register.MarkFlagRequired("password")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget it",
		RunE: func(c *cobra.Command, _ []string) error {
			// revoke server side when we still hold a token; forget it either way
			if _, err := a.token(); err == nil {
				_ = a.do(c.Context(), http.MethodPost, "/auth/logout", true, nil, nil)
			}
			if err := a.clearToken(); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), "logged out")
			return nil
		},
	}

	me := &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/auth/me", true)
		},
	}

	cmd.AddCommand(login, register, logout, me)
	return cmd
}

func (a *app) getAndPrint(c *cobra.Command, path string, authed bool) error {
	var resp any
	if err := a.do(c.Context(), http.MethodGet, path, authed, nil, &resp); err != nil {
		return err
	}
	return printJSON(c.OutOrStdout(), resp)
}

func (a *app) sendAndPrint(c *cobra.Command, method, path string, payload any) error {
	var resp any
	if err := a.do(c.Context(), method, path, true, payload, &resp); err != nil {
		return err
	}
	if resp == nil {
		fmt.Fprintln(c.OutOrStdout(), "ok")
		return nil
	}
	return printJSON(c.OutOrStdout(), resp)
}

func (a *app) cardsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cards", Short: "Browse the card catalog"}

	var (
		search, cardType, region, champion, rarity, sortBy string
		limit, offset                                       int
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "List cards matching the filters",
		RunE: func(c *cobra.Command, _ []string) error {
			qv := url.Values{}
			for k, v := range map[string]string{
				"search": search, "type": cardType, "region": region,
				"champion": champion, "rarity": rarity, "sort": sortBy,
			} {
				if v != "" {
					qv.Set(k, v)
				}
			}
			qv.Set("limit", strconv.Itoa(limit))
			qv.Set("offset", strconv.Itoa(offset))
			return a.getAndPrint(c, "/cards?"+qv.Encode(), false)
		},
	}
	searchCmd.Flags().StringVarP(&search, "query", "q", "", "name or code substring")
	searchCmd.Flags().StringVar(&cardType, "type", "", "card type")
	searchCmd.Flags().StringVar(&region, "region", "", "region")
	searchCmd.Flags().StringVar(&champion, "champion", "", "champion")
	searchCmd.Flags().StringVar(&rarity, "rarity", "", "rarity")
	searchCmd.Flags().StringVar(&sortBy, "sort", "", "name or card_code")
	searchCmd.Flags().IntVar(&limit, "limit", 20, "page size")
	searchCmd.Flags().IntVar(&offset, "offset", 0, "offset")

	show := &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show one card by id or card code",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if _, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				return a.getAndPrint(c, "/cards/"+args[0], false)
			}
			return a.getAndPrint(c, "/cards/code/"+url.PathEscape(args[0]), false)
		},
	}

	facets := &cobra.Command{
		Use:   "facets",
		Short: "List the filter values",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/cards/facets", false)
		},
	}

	cmd.AddCommand(searchCmd, show, facets)
	return cmd
}

// readInput reads a file argument, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func readDeckFile(path string, v any) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (a *app) deckCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "deck", Short: "Validate, save and share decks"}

	var grpcAddr string
	validate := &cobra.Command{
		Use:   "validate <deck.json>",
		Short: "Check a deck against the construction rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var in deck.Input
			if err := readDeckFile(args[0], &in); err != nil {
				return err
			}
			if grpcAddr != "" {
				return validateGRPC(c, grpcAddr, in)
			}
			return a.sendAndPrint(c, http.MethodPost, "/decks/validate", in)
		},
	}
	validate.Flags().StringVar(&grpcAddr, "grpc", "", "validate through the gRPC service at this address")

	save := &cobra.Command{
		Use:   "save <deck.json>",
		Short: "Save a deck (deck_id in the file updates an owned deck)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var in map[string]any
			if err := readDeckFile(args[0], &in); err != nil {
				return err
			}
			return a.sendAndPrint(c, http.MethodPost, "/decks", in)
		},
	}

	importCode := &cobra.Command{
		Use:   "import <code-file|->",
		Short: "Resolve a pasted deck code",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			return a.sendAndPrint(c, http.MethodPost, "/decks/import", map[string]string{"code": string(data)})
		},
	}

	export := &cobra.Command{
		Use:   "export <deck-id>",
		Short: "Print a saved deck as a deck code",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var resp struct {
				Code string `json:"code"`
			}
			if err := a.do(c.Context(), http.MethodGet, "/decks/"+url.PathEscape(args[0])+"/export", true, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), resp.Code)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List my decks",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/decks", true)
		},
	}

	show := &cobra.Command{
		Use:   "show <deck-id>",
		Short: "Show a deck with its cards and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			_, err := a.token()
			return a.getAndPrint(c, "/decks/"+url.PathEscape(args[0]), err == nil)
		},
	}

	byID := func(use, short, method, suffix string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <deck-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return a.sendAndPrint(c, method, "/decks/"+url.PathEscape(args[0])+suffix, nil)
			},
		}
	}

	community := &cobra.Command{
		Use:   "community",
		Short: "Browse published decks",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/community/decks", false)
		},
	}

	cmd.AddCommand(
		validate, save, importCode, export, list, show, community,
		byID("delete", "Delete an owned deck", http.MethodDelete, ""),
		byID("publish", "Publish an owned deck", http.MethodPost, "/publish"),
		byID("unpublish", "Unpublish an owned deck", http.MethodPost, "/unpublish"),
		byID("like", "Like a published deck", http.MethodPost, "/like"),
		byID("unlike", "Remove a like", http.MethodDelete, "/like"),
		byID("copy", "Copy a published deck into my decks", http.MethodPost, "/copy"),
	)
	return cmd
}

func validateGRPC(c *cobra.Command, addr string, in deck.Input) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	resp, err := grpcserver.NewDeckServiceClient(conn).ValidateDeck(ctx, &grpcserver.ValidateDeckRequest{Deck: in})
	if err != nil {
		return err
	}
	return printJSON(c.OutOrStdout(), resp.Report)
}

func (a *app) draftCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "draft", Short: "Build a deck step by step"}
	const base = "/drafts/current"

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current draft and its validation report",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, base, true)
		},
	}

	var name, description string
	meta := &cobra.Command{
		Use:   "name",
		Short: "Set the draft's name and description",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.sendAndPrint(c, http.MethodPut, base+"/meta", map[string]string{
				"deck_name": name, "description": description,
			})
		},
	}
	meta.Flags().StringVar(&name, "name", "", "deck name")
	meta.Flags().StringVar(&description, "description", "", "deck description")

	cardArg := func(use, short, method, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <card-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid card id %q", args[0])
				}
				return a.sendAndPrint(c, method, base+path, map[string]int64{"card_id": id})
			},
		}
	}

	var zone string
	add := &cobra.Command{
		Use:   "add <card-id>",
		Short: "Add one copy of a card to a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid card id %q", args[0])
			}
			return a.sendAndPrint(c, http.MethodPost, base+"/cards", map[string]any{"zone": zone, "card_id": id})
		},
	}
	add.Flags().StringVar(&zone, "zone", "main_deck", "main_deck, rune_deck or battlefields")

	remove := &cobra.Command{
		Use:   "remove <card-id>",
		Short: "Remove one copy of a card from a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.sendAndPrint(c, http.MethodDelete, base+"/cards/"+url.PathEscape(zone)+"/"+url.PathEscape(args[0]), nil)
		},
	}
	remove.Flags().StringVar(&zone, "zone", "main_deck", "main_deck, rune_deck or battlefields")

	var replace bool
	importCode := &cobra.Command{
		Use:   "import <code-file|->",
		Short: "Add the cards of a deck code to the draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			return a.sendAndPrint(c, http.MethodPost, base+"/import", map[string]any{"code": string(data), "replace": replace})
		},
	}
	importCode.Flags().BoolVar(&replace, "replace", false, "clear the draft first")

	load := &cobra.Command{
		Use:   "load <deck-id>",
		Short: "Start a draft from a saved deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.sendAndPrint(c, http.MethodPost, base+"/load/"+url.PathEscape(args[0]), nil)
		},
	}

	simple := func(use, short, method, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(c *cobra.Command, _ []string) error {
				return a.sendAndPrint(c, method, base+path, nil)
			},
		}
	}

	cmd.AddCommand(
		show, meta, add, remove, importCode, load,
		cardArg("legend", "Choose the Champion Legend", http.MethodPut, "/legend"),
		cardArg("champion", "Choose the Chosen Champion", http.MethodPut, "/champion"),
		simple("export", "Print the draft as a deck code", http.MethodGet, "/export"),
		simple("clear", "Empty every zone", http.MethodPost, "/clear"),
		simple("save", "Validate and save the draft as a deck", http.MethodPost, "/save"),
		simple("discard", "Delete the draft", http.MethodDelete, ""),
	)
	return cmd
}

func (a *app) collectionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "collection", Short: "Track owned cards and the wishlist"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List owned cards",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/collection", true)
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show collection totals",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/collection/stats", true)
		},
	}
	set := &cobra.Command{
		Use:   "set <card-id> <quantity>",
		Short: "Set the owned quantity of a card (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return a.sendAndPrint(c, http.MethodPut, "/collection/"+url.PathEscape(args[0]), map[string]int{"quantity": qty})
		},
	}

	wishlist := &cobra.Command{
		Use:   "wishlist",
		Short: "Show the wishlist",
		RunE: func(c *cobra.Command, _ []string) error {
			return a.getAndPrint(c, "/wishlist", true)
		},
	}
	wishlist.AddCommand(
		&cobra.Command{
			Use:  "add <card-id>",
			Args: cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return a.sendAndPrint(c, http.MethodPost, "/wishlist/"+url.PathEscape(args[0]), nil)
			},
		},
		&cobra.Command{
			Use:  "remove <card-id>",
			Args: cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return a.sendAndPrint(c, http.MethodDelete, "/wishlist/"+url.PathEscape(args[0]), nil)
			},
		},
	)

	cmd.AddCommand(list, stats, set, wishlist)
	return cmd
}

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Follow live deck and collection events"}

	var addr string
	listen := &cobra.Command{
		Use:   "listen",
		Short: "Stream events over the TCP sync server",
		RunE: func(c *cobra.Command, _ []string) error {
			token, _ := a.token()
			for {
				if err := runSyncTCP(c, addr, token); err != nil {
					fmt.Fprintf(c.ErrOrStderr(), "[sync] disconnected: %v\n", err)
				}
				select {
				case <-c.Context().Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	listen.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "TCP sync server address")

	subscribe := &cobra.Command{
		Use:   "subscribe",
		Short: "Stream events over the WebSocket endpoint",
		RunE: func(c *cobra.Command, _ []string) error {
			endpoint, err := websocketURL(a.baseURL, "/ws")
			if err != nil {
				return err
			}
			if token, err := a.token(); err == nil {
				endpoint += "?token=" + url.QueryEscape(token)
			}
			return runWebSocket(c, endpoint)
		},
	}

	cmd.AddCommand(listen, subscribe)
	return cmd
}

func runSyncTCP(c *cobra.Command, addr, token string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if token != "" {
		msg, _ := json.Marshal(map[string]string{"type": "auth", "token": token})
		if _, err := conn.Write(append(msg, '\n')); err != nil {
			return err
		}
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		fmt.Fprintln(c.OutOrStdout(), sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func runWebSocket(c *cobra.Command, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(c.Context(), wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), string(msg))
	}
}
