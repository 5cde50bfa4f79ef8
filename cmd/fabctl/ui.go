package main

import (
	"encoding/json"
	"fmt"

	"fabrik/internal/economy"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

type accountPayload struct {
	Account economy.Account `json:"account"`
}

type grantPayload struct {
	Err       economy.CooldownErr `json:"err"`
	Account   economy.Account     `json:"account"`
	Amount    int64               `json:"amount"`
	Remaining *economy.Remaining  `json:"remaining"`
}

type fabricPayload struct {
	Fabric economy.FabricView `json:"fabric"`
}

type leaderboardPayload struct {
	Leaderboard []economy.LeaderboardEntry `json:"leaderboard"`
	Cached      bool                       `json:"cached"`
}

type itemsPayload struct {
	Items []economy.Item `json:"items"`
}

type receiptPayload struct {
	Receipt economy.Receipt `json:"receipt"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

// decodePayload round-trips the generic API map into a typed payload.
func decodePayload(out map[string]any, v any) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func renderAccount(out map[string]any) error {
	var p accountPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	a := p.Account
	accent.Printf("%s", a.UserID)
	if a.GuildID != "" {
		neutral.Printf(" @ %s", a.GuildID)
	}
	fmt.Println()
	neutral.Printf("  wallet: %d\n", a.Wallet)
	neutral.Printf("  bank:   %d\n", a.Bank)
	if len(a.Inventory) > 0 {
		neutral.Printf("  items:  %v\n", a.Inventory)
	}
	return nil
}

func renderGrant(verb string, out map[string]any) error {
	var p grantPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	if p.Err == economy.CooldownDenied {
		r := p.Remaining
		if r == nil {
			printWarn("On cooldown.")
			return nil
		}
		printWarn(fmt.Sprintf("On cooldown: %dd %dh %dm %ds left.", r.Days, r.Hours, r.Minutes, r.Seconds))
		return nil
	}
	printSuccess(fmt.Sprintf("%s: +%d to wallet (now %d).", verb, p.Amount, p.Account.Wallet))
	return nil
}

func renderFabric(out map[string]any) error {
	var p fabricPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	f := p.Fabric
	accent.Printf("Fabric of %s\n", f.UserID)
	neutral.Printf("  level:     %d (xp %d/%d)\n", f.Level, f.XP, f.LevelUpXP)
	neutral.Printf("  employees: %d (next hire costs %d)\n", f.Employees, f.EmployeePrice)
	neutral.Printf("  valuation: %d\n", f.Valuation)
	if f.Collectable {
		success.Printf("  collect:   ready (%d receivable)\n", f.ReceivableMoney)
	} else {
		neutral.Printf("  collect:   on cooldown\n")
	}
	if f.LatePayment {
		danger.Printf("  payment:   OVERDUE, %d due\n", f.ValueToPay)
	}
	if f.SoldPercentage != nil {
		warn.Printf("  sold:      %d%% stake sold, rebuild locked\n", *f.SoldPercentage)
	}
	return nil
}

func renderLeaderboard(out map[string]any) error {
	var p leaderboardPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	if len(p.Leaderboard) == 0 {
		printInfo("Leaderboard is empty.")
		return nil
	}
	if p.Cached {
		printInfo("(cached snapshot)")
	}
	for _, row := range p.Leaderboard {
		neutral.Printf("%3d. %-24s bank=%-10d wallet=%d\n", row.Pos, row.UserID, row.Bank, row.Wallet)
	}
	return nil
}

func renderItems(out map[string]any) error {
	var p itemsPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	if len(p.Items) == 0 {
		printInfo("Store is empty.")
		return nil
	}
	for _, item := range p.Items {
		accent.Printf("%-16s", item.ID)
		neutral.Printf(" %-24s %8d", item.Name, item.Price)
		if item.Description != "" {
			neutral.Printf("  %s", item.Description)
		}
		fmt.Println()
	}
	return nil
}

func renderReceipt(out map[string]any) error {
	var p receiptPayload
	if err := decodePayload(out, &p); err != nil {
		return err
	}
	switch p.Receipt.Err {
	case "":
		printSuccess(fmt.Sprintf("Bought %s.", p.Receipt.ItemID))
	case economy.BuyNotEnoughMoney:
		printError("Not enough money in wallet.")
	case economy.BuyUserNotFound:
		printError("Account not found.")
	default:
		printError(fmt.Sprintf("Purchase failed: %s", p.Receipt.Err))
	}
	return nil
}
